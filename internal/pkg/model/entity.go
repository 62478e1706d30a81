package model

// Entity is a resource with a key and an optional numeric id.
type Entity interface {
	EntityKey() string
	EntityID() *int64
}

func (v *Connection) EntityKey() string  { return v.Key }
func (v *Connection) EntityID() *int64   { return v.ID }
func (v *Repository) EntityKey() string  { return v.Key }
func (v *Repository) EntityID() *int64   { return v.ID }
func (v *Environment) EntityKey() string { return v.Key }
func (v *Environment) EntityID() *int64  { return v.ID }
func (v *Job) EntityKey() string         { return v.Key }
func (v *Job) EntityID() *int64          { return v.ID }
func (v *Project) EntityKey() string     { return v.Key }
func (v *Project) EntityID() *int64      { return v.ID }
