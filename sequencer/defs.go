package sequencer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/framecore/animation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDefs = errors.New("sequencer: invalid definitions")

// Defs is the declarative form of a sequencer: motion flags, sequences, transition sequences and
// default centre of gravity positions.
type Defs struct {
	Motions     []MotionDef     `yaml:"motions"`
	Sequences   []SequenceDef   `yaml:"sequences"`
	Transitions []TransitionDef `yaml:"transitions"`
	DefaultCOG  []COGDef        `yaml:"default_cog"`
}

type MotionDef struct {
	Name  string   `yaml:"name"`
	Flags []string `yaml:"flags"`
}

type SegmentDef struct {
	Motion     string  `yaml:"motion"`
	Loop       bool    `yaml:"loop"`
	Immediate  bool    `yaml:"immediate"`
	Reps       int     `yaml:"reps"`
	Guard      *bool   `yaml:"guard"`
	BlendTicks *uint32 `yaml:"blend_ticks"`
}

type SequenceDef struct {
	Name     string       `yaml:"name"`
	Begin    string       `yaml:"begin"`
	End      string       `yaml:"end"`
	Segments []SegmentDef `yaml:"motions"`
}

type TransitionDef struct {
	Name     string       `yaml:"name"`
	From     string       `yaml:"from"`
	To       string       `yaml:"to"`
	Segments []SegmentDef `yaml:"motions"`
}

type COGDef struct {
	State    string     `yaml:"state"`
	Position [3]float32 `yaml:"position"`
}

var motionFlagNames = map[string]animation.MotionFlags{
	"z_independent":   animation.ZIndependent,
	"no_root_motion":  animation.NoRootMotion,
	"skip_last_frame": animation.SkipLastFrame,
	"sped":            animation.Sped,
}

// LoadDefs decodes sequencer definitions. Unknown keys are an error.
func LoadDefs(r io.Reader) (*Defs, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs Defs
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return &defs, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefs, err)
	}
	return &defs, nil
}

// Apply registers the definitions on s. Motions must already be loaded; segments naming an
// unknown motion are skipped with a warning.
func (d *Defs) Apply(s *Sequencer) error {
	for _, md := range d.Motions {
		var flags animation.MotionFlags
		for _, name := range md.Flags {
			f, ok := motionFlagNames[strings.ToLower(name)]
			if !ok {
				return fmt.Errorf("%w: motion %q has unknown flag %q", ErrInvalidDefs, md.Name, name)
			}
			flags |= f
		}

		h, ok := s.MotionHandle(md.Name)
		if !ok {
			s.logger.Warn("flags declared for unknown motion", zap.String("motion", md.Name))
			continue
		}
		m, _ := s.Motion(h)
		m.Flags |= flags
	}

	for _, sd := range d.Sequences {
		if sd.Name == "" {
			return fmt.Errorf("%w: sequence without a name", ErrInvalidDefs)
		}
		infos := s.segments(sd.Name, sd.Segments)
		begin, end := s.InferStates(infos)
		if sd.Begin != "" {
			begin = StateOf(sd.Begin)
		}
		if sd.End != "" {
			end = StateOf(sd.End)
		}
		s.AddSequence(sd.Name, begin, end, infos...)
	}

	for _, td := range d.Transitions {
		if td.From == "" || td.To == "" {
			return fmt.Errorf("%w: transition %q needs both from and to", ErrInvalidDefs, td.Name)
		}
		s.AddTransition(td.Name, StateOf(td.From), StateOf(td.To), s.segments(td.Name, td.Segments)...)
	}

	for _, cd := range d.DefaultCOG {
		s.SetDefaultCOG(StateOf(cd.State), mgl32.Vec3(cd.Position))
	}
	return nil
}

func (s *Sequencer) segments(sequence string, defs []SegmentDef) []*MotionInfo {
	infos := make([]*MotionInfo, 0, len(defs))
	for _, sd := range defs {
		h, ok := s.MotionHandle(sd.Motion)
		if !ok {
			s.logger.Warn("skipping unknown motion",
				zap.String("sequence", sequence),
				zap.String("motion", sd.Motion),
			)
			continue
		}

		info := s.NewMotionInfo(h)
		info.Looping = sd.Loop
		info.Immediate = sd.Immediate
		info.RepeatCount = sd.Reps
		info.TransitionGuard = sd.Loop
		if sd.Guard != nil {
			info.TransitionGuard = *sd.Guard
		}
		if sd.BlendTicks != nil {
			info.BlendTicks = *sd.BlendTicks
		}
		infos = append(infos, info)
	}
	return infos
}
