package debugui

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/framecore/ecs"
	"github.com/plus3/framecore/sim"
)

// EntityInfo is one row of the entity browser.
type EntityInfo struct {
	ID          ecs.EntityId
	ArchetypeID uint16
	Components  []string
}

type sortColumn int

const (
	sortByID sortColumn = iota
	sortByArchetype
	sortByComponents
)

// EntityPanel lists every entity and inspects the components of the chosen one. The chosen
// entity can be selected in the world, which highlights its model.
type EntityPanel struct {
	world   *sim.World
	fields  *ReflectionCache
	perPage int

	entities   []EntityInfo
	archetypes int
	total      int
	column     sortColumn
	ascending  bool
	filter     string
	page       int
	chosen     ecs.EntityId
}

func NewEntityPanel(w *sim.World, perPage int) *EntityPanel {
	return &EntityPanel{world: w, fields: NewReflectionCache(), perPage: max(perPage, 1), ascending: true}
}

// Chosen returns the entity shown in the inspector.
func (p *EntityPanel) Chosen() ecs.EntityId {
	return p.chosen
}

func (p *EntityPanel) Render() {
	p.refresh()
	p.renderBrowser()
	p.renderInspector()
}

// refresh rebuilds the rows when entities were spawned, deleted or moved between archetypes.
func (p *EntityPanel) refresh() {
	stats := p.world.Storage.CollectStats()
	if p.entities != nil && stats.ArchetypeCount == p.archetypes && stats.TotalEntityCount == p.total {
		return
	}
	p.archetypes, p.total = stats.ArchetypeCount, stats.TotalEntityCount
	p.entities = collectEntities(p.world.Storage)
	sortEntities(p.entities, p.column, p.ascending)
}

func (p *EntityPanel) renderBrowser() {
	if !imgui.BeginV("Entities", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.InputTextWithHint("##search", "Filter...", &p.filter, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear") {
		p.filter = ""
		p.page = 0
	}

	rows := filterEntities(p.entities, p.filter)
	pages := max((len(rows)+p.perPage-1)/p.perPage, 1)
	p.page = min(p.page, pages-1)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 3, tableFlags, imgui.NewVec2(0, 300), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Archetype")
		imgui.TableSetupColumn("Components")
		imgui.TableHeadersRow()

		specs := imgui.TableGetSortSpecs()
		if specs.SpecsDirty() && specs.SpecsCount() > 0 {
			spec := specs.Specs()
			p.column = sortColumn(spec.ColumnIndex())
			p.ascending = spec.SortDirection() == imgui.SortDirectionAscending
			sortEntities(p.entities, p.column, p.ascending)
			specs.SetSpecsDirty(false)
		}

		start := p.page * p.perPage
		for _, e := range rows[start:min(start+p.perPage, len(rows))] {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			label := fmt.Sprintf("%d/%d", e.ID.Index(), e.ID.Generation())
			if imgui.SelectableBoolV(label, p.chosen == e.ID, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				p.chosen = e.ID
			}
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("0x%X", e.ArchetypeID))
			imgui.TableNextColumn()
			imgui.Text(strings.Join(e.Components, ", "))
		}
		imgui.EndTable()
	}

	imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", p.page+1, pages, len(rows)))
	imgui.SameLine()
	if imgui.Button("Prev") && p.page > 0 {
		p.page--
	}
	imgui.SameLine()
	if imgui.Button("Next") && p.page < pages-1 {
		p.page++
	}

	imgui.End()
}

func (p *EntityPanel) renderInspector() {
	if !imgui.BeginV("Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}
	defer imgui.End()

	storage := p.world.Storage
	if p.chosen == 0 || !storage.Alive(p.chosen) {
		imgui.Text("No entity chosen")
		return
	}

	imgui.Text(fmt.Sprintf("Entity %d (generation %d)", p.chosen.Index(), p.chosen.Generation()))
	if storage.HasComponent(p.chosen, reflect.TypeFor[sim.ModelInstance]()) {
		imgui.SameLine()
		if storage.HasComponent(p.chosen, reflect.TypeFor[sim.Selected]()) {
			if imgui.Button("Deselect") {
				p.chosen = p.world.Deselect(p.chosen)
				return
			}
		} else if imgui.Button("Select") {
			p.chosen = p.world.Select(p.chosen)
			return
		}
	}
	imgui.Separator()

	a := archetypeOf(storage, p.chosen)
	if a == nil {
		return
	}
	for _, t := range a.Types() {
		component := storage.GetComponent(p.chosen, t)
		if component == nil {
			continue
		}
		if imgui.TreeNodeStr(t.String()) {
			p.renderStruct(reflect.ValueOf(component).Elem())
			imgui.TreePop()
		}
	}
}

func (p *EntityPanel) renderStruct(v reflect.Value) {
	for _, f := range p.fields.Fields(v.Type()) {
		fv := v.Field(f.Index)
		if f.IsPointer {
			if fv.IsNil() {
				imgui.Text(f.Name + ": nil")
				continue
			}
			fv = fv.Elem()
		}
		p.renderField(f.Name, fv)
	}
}

// renderField draws an editor for v. Values reached through a component pointer are settable,
// so edits land in storage directly.
func (p *EntityPanel) renderField(name string, v reflect.Value) {
	id := "##" + name
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := int32(v.Int())
		imgui.Text(name + ":")
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(id, &n) && v.CanSet() {
			v.SetInt(int64(n))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := int32(min(v.Uint(), 1<<31-1))
		imgui.Text(name + ":")
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(id, &n) && n >= 0 && v.CanSet() {
			v.SetUint(uint64(n))
		}

	case reflect.Float32, reflect.Float64:
		f := float32(v.Float())
		imgui.Text(name + ":")
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(id, &f) && v.CanSet() {
			v.SetFloat(float64(f))
		}

	case reflect.Bool:
		b := v.Bool()
		if imgui.Checkbox(name, &b) && v.CanSet() {
			v.SetBool(b)
		}

	case reflect.String:
		s := v.String()
		imgui.Text(name + ":")
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(id, "", &s, imgui.InputTextFlagsNone, nil) && v.CanSet() {
			v.SetString(s)
		}

	case reflect.Array:
		// Vectors and quaternions are small float arrays.
		if v.Type().Elem().Kind() == reflect.Float32 && v.Len() <= 4 {
			imgui.Text(name + ":")
			for i := range v.Len() {
				f := float32(v.Index(i).Float())
				imgui.SameLine()
				imgui.SetNextItemWidth(70)
				if imgui.InputFloat(fmt.Sprintf("%s.%d", id, i), &f) && v.CanSet() {
					v.Index(i).SetFloat(float64(f))
				}
			}
			return
		}
		imgui.Text(fmt.Sprintf("%s: [%d]%s", name, v.Len(), v.Type().Elem()))

	case reflect.Struct:
		if imgui.TreeNodeStr(name) {
			p.renderStruct(v)
			imgui.TreePop()
		}

	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: %d items", name, v.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: %d entries", name, v.Len()))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, v))
	}
}

func archetypeOf(storage *ecs.Storage, id ecs.EntityId) *ecs.Archetype {
	for _, a := range storage.Archetypes() {
		if a.ID() == id.ArchetypeId() {
			return a
		}
	}
	return nil
}

// collectEntities lists every live entity in archetype order.
func collectEntities(storage *ecs.Storage) []EntityInfo {
	var out []EntityInfo
	for _, a := range storage.Archetypes() {
		names := make([]string, len(a.Types()))
		for i, t := range a.Types() {
			names[i] = t.String()
		}
		for id := range a.Iter() {
			out = append(out, EntityInfo{ID: id, ArchetypeID: a.ID(), Components: names})
		}
	}
	if out == nil {
		out = []EntityInfo{}
	}
	return out
}

// filterEntities keeps rows whose id, archetype or component names contain text, ignoring case.
func filterEntities(entities []EntityInfo, text string) []EntityInfo {
	if text == "" {
		return entities
	}
	text = strings.ToLower(text)
	out := make([]EntityInfo, 0, len(entities))
	for _, e := range entities {
		if strings.Contains(fmt.Sprintf("%d", e.ID.Index()), text) ||
			strings.Contains(fmt.Sprintf("0x%x", e.ArchetypeID), text) ||
			strings.Contains(strings.ToLower(strings.Join(e.Components, " ")), text) {
			out = append(out, e)
		}
	}
	return out
}

func sortEntities(entities []EntityInfo, column sortColumn, ascending bool) {
	slices.SortStableFunc(entities, func(a, b EntityInfo) int {
		var c int
		switch column {
		case sortByArchetype:
			c = cmp.Compare(a.ArchetypeID, b.ArchetypeID)
		case sortByComponents:
			c = cmp.Compare(strings.Join(a.Components, ","), strings.Join(b.Components, ","))
		}
		c = cmp.Or(c, cmp.Compare(a.ID, b.ID))
		if !ascending {
			return -c
		}
		return c
	})
}
