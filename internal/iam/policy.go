package iam

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PolicyDocument is a decoded JSON policy document. Valid documents carry a
// Version field and a Statement array.
type PolicyDocument map[string]any

// ValidatePolicyDocument checks the structural rules for a policy document
// and returns the specific violation: nil document, missing Version, missing
// Statement, or a Statement that is not an array.
func ValidatePolicyDocument(doc PolicyDocument) error {
	if doc == nil {
		return ErrInvalidPolicyDocument
	}
	if v, ok := doc["Version"]; !ok || v == nil || v == "" {
		return ErrPolicyMissingVersion
	}
	stmt, ok := doc["Statement"]
	if !ok || stmt == nil {
		return ErrPolicyMissingStatement
	}
	switch stmt.(type) {
	case []any, []map[string]any:
		return nil
	default:
		return ErrPolicyStatementNotArray
	}
}

// clonePolicyDocument deep-copies a document so callers can never reach the
// stored version history through a returned value.
func clonePolicyDocument(doc PolicyDocument) PolicyDocument {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(PolicyDocument)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case PolicyDocument:
		out := make(PolicyDocument, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e).(map[string]any)
		}
		return out
	default:
		return v
	}
}

// PolicyVersion is one immutable entry in a policy's version history.
type PolicyVersion struct {
	VersionID string
	Document  PolicyDocument
	CreatedAt time.Time
}

// Policy is a named, versioned authorization policy. The version history is
// append-only: versions are never mutated or removed, and at least one
// version exists for the life of the policy. Version IDs come from a
// per-policy monotonic counter formatted as v<N>.
type Policy struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	versions         []PolicyVersion
	defaultVersionID string
	document         PolicyDocument
	nextVersion      int
}

// NewPolicy validates the document and constructs a policy whose initial
// version is also its default.
func NewPolicy(id, name, description string, doc PolicyDocument, now time.Time) (*Policy, error) {
	if err := ValidatePolicyDocument(doc); err != nil {
		return nil, err
	}
	p := &Policy{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		nextVersion: 1,
	}
	v := p.appendVersion(doc, now)
	p.defaultVersionID = v.VersionID
	p.document = v.Document
	return p, nil
}

func (p *Policy) appendVersion(doc PolicyDocument, now time.Time) PolicyVersion {
	v := PolicyVersion{
		VersionID: "v" + strconv.Itoa(p.nextVersion),
		Document:  clonePolicyDocument(doc),
		CreatedAt: now,
	}
	p.nextVersion++
	p.versions = append(p.versions, v)
	return v
}

// PolicyUpdate carries the optional fields for Update. Nil pointers and a nil
// Document leave the corresponding attribute untouched.
type PolicyUpdate struct {
	Name        *string
	Description *string
	Document    PolicyDocument
}

// Update applies the present fields. A document update appends a new version
// and repoints the default to it. Validation happens before any field is
// touched, so a failed update leaves the policy unchanged. UpdatedAt is
// touched iff any field was provided.
func (p *Policy) Update(u PolicyUpdate, now time.Time) error {
	if u.Document != nil {
		if err := ValidatePolicyDocument(u.Document); err != nil {
			return err
		}
	}

	updated := false
	if u.Name != nil {
		p.Name = *u.Name
		updated = true
	}
	if u.Description != nil {
		p.Description = *u.Description
		updated = true
	}
	if u.Document != nil {
		v := p.appendVersion(u.Document, now)
		p.defaultVersionID = v.VersionID
		p.document = v.Document
		updated = true
	}
	if updated {
		t := now
		p.UpdatedAt = &t
	}
	return nil
}

// CreateVersion validates and appends a new version without changing the
// default pointer. This is the only way to add a non-default version.
func (p *Policy) CreateVersion(doc PolicyDocument, now time.Time) (PolicyVersion, error) {
	if err := ValidatePolicyDocument(doc); err != nil {
		return PolicyVersion{}, err
	}
	v := p.appendVersion(doc, now)
	return PolicyVersion{
		VersionID: v.VersionID,
		Document:  clonePolicyDocument(v.Document),
		CreatedAt: v.CreatedAt,
	}, nil
}

// SetDefaultVersion repoints the default to an existing version and refreshes
// the denormalized document.
func (p *Policy) SetDefaultVersion(versionID string) error {
	for i := range p.versions {
		if p.versions[i].VersionID == versionID {
			p.defaultVersionID = versionID
			p.document = p.versions[i].Document
			return nil
		}
	}
	return ErrPolicyVersionNotFound
}

// DefaultVersionID returns the id of the version the policy currently
// resolves to.
func (p *Policy) DefaultVersionID() string {
	return p.defaultVersionID
}

// Document returns a copy of the document the default version points to.
func (p *Policy) Document() PolicyDocument {
	return clonePolicyDocument(p.document)
}

// Versions returns a snapshot of the history in append order, oldest first.
func (p *Policy) Versions() []PolicyVersion {
	out := make([]PolicyVersion, 0, len(p.versions))
	for _, v := range p.versions {
		out = append(out, PolicyVersion{
			VersionID: v.VersionID,
			Document:  clonePolicyDocument(v.Document),
			CreatedAt: v.CreatedAt,
		})
	}
	return out
}

// PolicySnapshot is the persistence view of a policy.
type PolicySnapshot struct {
	ID               string
	Name             string
	Description      string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DefaultVersionID string
	Versions         []PolicyVersion
}

// Snapshot returns a full copy for persistence.
func (p *Policy) Snapshot() PolicySnapshot {
	snap := PolicySnapshot{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		CreatedAt:        p.CreatedAt,
		DefaultVersionID: p.defaultVersionID,
		Versions:         p.Versions(),
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		snap.UpdatedAt = &t
	}
	return snap
}

// RestorePolicy rehydrates a policy from storage. Historical documents were
// validated at their original write and are not re-validated here. The
// version counter resumes past the highest stored version id.
func RestorePolicy(snap PolicySnapshot) (*Policy, error) {
	if len(snap.Versions) == 0 {
		return nil, fmt.Errorf("restore policy %q: no versions", snap.ID)
	}
	p := &Policy{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		CreatedAt:   snap.CreatedAt,
		nextVersion: 1,
	}
	if snap.UpdatedAt != nil {
		t := *snap.UpdatedAt
		p.UpdatedAt = &t
	}
	for _, v := range snap.Versions {
		p.versions = append(p.versions, PolicyVersion{
			VersionID: v.VersionID,
			Document:  clonePolicyDocument(v.Document),
			CreatedAt: v.CreatedAt,
		})
		if n, err := strconv.Atoi(strings.TrimPrefix(v.VersionID, "v")); err == nil && n >= p.nextVersion {
			p.nextVersion = n + 1
		}
	}
	if err := p.SetDefaultVersion(snap.DefaultVersionID); err != nil {
		return nil, fmt.Errorf("restore policy %q: %w", snap.ID, err)
	}
	return p, nil
}
