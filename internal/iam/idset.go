package iam

// idSet is an insertion-ordered collection of identifiers with uniqueness
// enforced on insert. Every attachment relation in the system (user→policy,
// user→role, role→policy, group→policy, group→member, group→admin) is one of
// these, holding opaque foreign IDs rather than entity references.
type idSet struct {
	ids []string
}

func (s *idSet) contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// attach appends id and reports whether it was added. A false return means
// the id was already present; the owning entity maps that to its
// relation-specific AlreadyAttached error.
func (s *idSet) attach(id string) bool {
	if s.contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// detach removes id if present. Absence is a no-op.
func (s *idSet) detach(id string) {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
}

// attachAll applies single-attach semantics per element, silently skipping
// ids that are already present. Deliberately more permissive than attach.
func (s *idSet) attachAll(ids []string) {
	for _, id := range ids {
		if !s.contains(id) {
			s.ids = append(s.ids, id)
		}
	}
}

// detachAll removes every listed id, silently skipping absent ones.
func (s *idSet) detachAll(ids []string) {
	for _, id := range ids {
		s.detach(id)
	}
}

func (s *idSet) removeAll() {
	s.ids = nil
}

func (s *idSet) len() int {
	return len(s.ids)
}

// values returns a copy in insertion order.
func (s *idSet) values() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// restore replaces the contents wholesale, used when rehydrating an entity
// from storage. Duplicates in stored data are dropped, preserving first
// occurrence order.
func (s *idSet) restore(ids []string) {
	s.ids = nil
	s.attachAll(ids)
}
