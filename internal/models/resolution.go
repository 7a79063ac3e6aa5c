package models

// Resolution is the outcome of following one cross-reference. Entry is nil
// when the target is not loaded anywhere the resolver can see. Incoming marks
// a reference declared by Entry that points back at the entry asked about.
type Resolution struct {
	TargetID     string `json:"target_id"`
	Entry        *Entry `json:"entry,omitempty"`
	Module       string `json:"module,omitempty"`
	Relationship string `json:"relationship"`
	Label        Text   `json:"label"`
	Incoming     bool   `json:"incoming,omitempty"`
}

// Resolved reports whether the target was found.
func (r Resolution) Resolved() bool {
	return r.Entry != nil
}
