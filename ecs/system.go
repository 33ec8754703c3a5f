package ecs

// System is a behaviour run once per simulation step. Query and Singleton fields on a system
// struct are bound to the storage when the system is registered.
type System interface {
	Execute(frame *UpdateFrame)
}
