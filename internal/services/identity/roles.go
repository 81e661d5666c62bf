package identity

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/telemetry"
)

// CreateRole registers a new role and persists it.
func (s *Service) CreateRole(ctx context.Context, id, name, description string) (iam.RoleSnapshot, error) {
	id = newID(id)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "roles.Create",
		attribute.String(telemetry.AttrRoleID, id),
	)
	defer span.End()

	snap, err := s.roles.Create(id, name, description)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.RoleSnapshot{}, err
	}
	return snap, s.persistRole(ctx, span, snap)
}

// GetRole returns a role snapshot.
func (s *Service) GetRole(ctx context.Context, id string) (iam.RoleSnapshot, error) {
	snap, ok := s.roles.GetByID(id)
	if !ok {
		return iam.RoleSnapshot{}, iam.ErrRoleNotFound
	}
	return snap, nil
}

// ListRoles returns all role snapshots.
func (s *Service) ListRoles(ctx context.Context) []iam.RoleSnapshot {
	return s.roles.List()
}

// UpdateRole applies a partial update, recording a revision first.
func (s *Service) UpdateRole(ctx context.Context, id string, upd iam.RoleUpdate) (iam.RoleSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "roles.Update",
		attribute.String(telemetry.AttrRoleID, id),
	)
	defer span.End()

	snap, err := s.roles.Update(id, upd)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.RoleSnapshot{}, err
	}
	return snap, s.persistRole(ctx, span, snap)
}

// RemoveRole deletes the role.
func (s *Service) RemoveRole(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "roles.Remove",
		attribute.String(telemetry.AttrRoleID, id),
	)
	defer span.End()

	if err := s.roles.Remove(id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.store.Roles.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// AttachRolePolicy records a role→policy edge with strict duplicate handling.
func (s *Service) AttachRolePolicy(ctx context.Context, roleID, policyID string) (iam.RoleSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "roles.AttachPolicy",
		attribute.String(telemetry.AttrRoleID, roleID),
		attribute.String(telemetry.AttrPolicyID, policyID),
	)
	defer span.End()

	snap, err := s.roles.AttachPolicy(roleID, policyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.RoleSnapshot{}, err
	}
	return snap, s.persistRole(ctx, span, snap)
}

// DetachRolePolicy removes a role→policy edge. Absence is a no-op.
func (s *Service) DetachRolePolicy(ctx context.Context, roleID, policyID string) (iam.RoleSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "roles.DetachPolicy",
		attribute.String(telemetry.AttrRoleID, roleID),
		attribute.String(telemetry.AttrPolicyID, policyID),
	)
	defer span.End()

	snap, err := s.roles.DetachPolicy(roleID, policyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.RoleSnapshot{}, err
	}
	return snap, s.persistRole(ctx, span, snap)
}

// ListRolePolicies returns attached policy IDs.
func (s *Service) ListRolePolicies(ctx context.Context, roleID string) ([]string, error) {
	return s.roles.ListPolicies(roleID)
}

// RoleHistory returns the role's pre-change revisions, oldest first.
func (s *Service) RoleHistory(ctx context.Context, roleID string) ([]iam.RoleRevision, error) {
	return s.roles.History(roleID)
}

func (s *Service) persistRole(ctx context.Context, span trace.Span, snap iam.RoleSnapshot) error {
	if err := s.store.Roles.Save(ctx, snap); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("persist role %q: %w", snap.ID, err)
	}
	return nil
}
