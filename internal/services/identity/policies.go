package identity

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/telemetry"
)

// CreatePolicy validates the document, registers a new policy with an
// initial v1 version, and persists it.
func (s *Service) CreatePolicy(ctx context.Context, id, name, description string, doc iam.PolicyDocument) (iam.PolicySnapshot, error) {
	id = newID(id)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "policies.Create",
		attribute.String(telemetry.AttrPolicyID, id),
	)
	defer span.End()

	snap, err := s.policies.Create(id, name, description, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.PolicySnapshot{}, err
	}
	return snap, s.persistPolicy(ctx, span, snap)
}

// GetPolicy returns a policy snapshot.
func (s *Service) GetPolicy(ctx context.Context, id string) (iam.PolicySnapshot, error) {
	snap, ok := s.policies.GetByID(id)
	if !ok {
		return iam.PolicySnapshot{}, iam.ErrPolicyNotFound
	}
	return snap, nil
}

// ListPolicies returns all policy snapshots.
func (s *Service) ListPolicies(ctx context.Context) []iam.PolicySnapshot {
	return s.policies.List()
}

// UpdatePolicy applies a partial update. A new document appends a version
// and repoints the default.
func (s *Service) UpdatePolicy(ctx context.Context, id string, upd iam.PolicyUpdate) (iam.PolicySnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "policies.Update",
		attribute.String(telemetry.AttrPolicyID, id),
	)
	defer span.End()

	snap, err := s.policies.Update(id, upd)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.PolicySnapshot{}, err
	}
	return snap, s.persistPolicy(ctx, span, snap)
}

// RemovePolicy deletes the policy and all of its versions.
func (s *Service) RemovePolicy(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "policies.Remove",
		attribute.String(telemetry.AttrPolicyID, id),
	)
	defer span.End()

	if err := s.policies.Remove(id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.store.Policies.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("delete policy: %w", err)
	}
	return nil
}

// CreatePolicyVersion appends a version without moving the default.
func (s *Service) CreatePolicyVersion(ctx context.Context, id string, doc iam.PolicyDocument) (iam.PolicyVersion, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "policies.CreateVersion",
		attribute.String(telemetry.AttrPolicyID, id),
	)
	defer span.End()

	ver, err := s.policies.CreateVersion(id, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.PolicyVersion{}, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrVersionID, ver.VersionID))

	snap, ok := s.policies.GetByID(id)
	if !ok {
		return iam.PolicyVersion{}, iam.ErrPolicyNotFound
	}
	return ver, s.persistPolicy(ctx, span, snap)
}

// ListPolicyVersions returns the policy's versions, oldest first.
func (s *Service) ListPolicyVersions(ctx context.Context, id string) ([]iam.PolicyVersion, error) {
	return s.policies.ListVersions(id)
}

// SetDefaultPolicyVersion repoints the default to an existing version.
func (s *Service) SetDefaultPolicyVersion(ctx context.Context, id, versionID string) (iam.PolicySnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "policies.SetDefaultVersion",
		attribute.String(telemetry.AttrPolicyID, id),
		attribute.String(telemetry.AttrVersionID, versionID),
	)
	defer span.End()

	snap, err := s.policies.SetDefaultVersion(id, versionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.PolicySnapshot{}, err
	}
	return snap, s.persistPolicy(ctx, span, snap)
}

func (s *Service) persistPolicy(ctx context.Context, span trace.Span, snap iam.PolicySnapshot) error {
	if err := s.store.Policies.Save(ctx, snap); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("persist policy %q: %w", snap.ID, err)
	}
	return nil
}
