package identity

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/telemetry"
)

// CreateGroup registers a new group and persists it. A missing ID is
// generated.
func (s *Service) CreateGroup(ctx context.Context, id, name, description string) (iam.GroupSnapshot, error) {
	id = newID(id)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.Create",
		attribute.String(telemetry.AttrGroupID, id),
	)
	defer span.End()

	snap, err := s.groups.Create(id, name, description)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// GetGroup returns a group snapshot.
func (s *Service) GetGroup(ctx context.Context, id string) (iam.GroupSnapshot, error) {
	snap, ok := s.groups.GetByID(id)
	if !ok {
		return iam.GroupSnapshot{}, iam.ErrGroupNotFound
	}
	return snap, nil
}

// ListGroups returns all group snapshots.
func (s *Service) ListGroups(ctx context.Context) []iam.GroupSnapshot {
	return s.groups.List()
}

// SearchGroups matches the query against group names and descriptions.
func (s *Service) SearchGroups(ctx context.Context, query string) []iam.GroupSnapshot {
	return s.groups.Search(query)
}

// ListGroupsWithoutMembers returns groups with an empty membership set.
func (s *Service) ListGroupsWithoutMembers(ctx context.Context) []iam.GroupSnapshot {
	return s.groups.ListWithoutMembers()
}

// ListGroupsWithoutPolicies returns groups with no policy attachments.
func (s *Service) ListGroupsWithoutPolicies(ctx context.Context) []iam.GroupSnapshot {
	return s.groups.ListWithoutPolicies()
}

// UpdateGroup applies a partial update and persists the result.
func (s *Service) UpdateGroup(ctx context.Context, id string, upd iam.GroupUpdate) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.Update",
		attribute.String(telemetry.AttrGroupID, id),
	)
	defer span.End()

	snap, err := s.groups.Update(id, upd)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// RemoveGroup deletes the group unless it is marked essential.
func (s *Service) RemoveGroup(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.Remove",
		attribute.String(telemetry.AttrGroupID, id),
	)
	defer span.End()

	if err := s.groups.Remove(id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.store.Groups.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// MarkGroupEssential protects the group from removal.
func (s *Service) MarkGroupEssential(ctx context.Context, id string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.MarkEssential",
		attribute.String(telemetry.AttrGroupID, id),
	)
	defer span.End()

	snap, err := s.groups.MarkEssential(id)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// AttachGroupUser adds a member with strict duplicate handling.
func (s *Service) AttachGroupUser(ctx context.Context, groupID, userID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.AttachUser",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.String(telemetry.AttrUserID, userID),
	)
	defer span.End()

	snap, err := s.groups.AttachUser(groupID, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// DetachGroupUser removes a member. Absence is a no-op.
func (s *Service) DetachGroupUser(ctx context.Context, groupID, userID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.DetachUser",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.String(telemetry.AttrUserID, userID),
	)
	defer span.End()

	snap, err := s.groups.DetachUser(groupID, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// AttachGroupUsers adds many members, silently skipping duplicates.
func (s *Service) AttachGroupUsers(ctx context.Context, groupID string, userIDs []string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.AttachUsers",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.Int("count", len(userIDs)),
	)
	defer span.End()

	snap, err := s.groups.AttachUsers(groupID, userIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// DetachGroupUsers removes many members, silently skipping absent ones.
func (s *Service) DetachGroupUsers(ctx context.Context, groupID string, userIDs []string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.DetachUsers",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.Int("count", len(userIDs)),
	)
	defer span.End()

	snap, err := s.groups.DetachUsers(groupID, userIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// RemoveAllGroupUsers clears the membership set.
func (s *Service) RemoveAllGroupUsers(ctx context.Context, groupID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.RemoveAllUsers",
		attribute.String(telemetry.AttrGroupID, groupID),
	)
	defer span.End()

	snap, err := s.groups.RemoveAllUsers(groupID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// ListGroupMembers returns member user IDs.
func (s *Service) ListGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	return s.groups.ListMembers(groupID)
}

// AttachGroupPolicy records a group→policy edge.
func (s *Service) AttachGroupPolicy(ctx context.Context, groupID, policyID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.AttachPolicy",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.String(telemetry.AttrPolicyID, policyID),
	)
	defer span.End()

	snap, err := s.groups.AttachPolicy(groupID, policyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// DetachGroupPolicy removes a group→policy edge.
func (s *Service) DetachGroupPolicy(ctx context.Context, groupID, policyID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.DetachPolicy",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.String(telemetry.AttrPolicyID, policyID),
	)
	defer span.End()

	snap, err := s.groups.DetachPolicy(groupID, policyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// AttachGroupPolicies adds many policies, silently skipping duplicates.
func (s *Service) AttachGroupPolicies(ctx context.Context, groupID string, policyIDs []string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.AttachPolicies",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.Int("count", len(policyIDs)),
	)
	defer span.End()

	snap, err := s.groups.AttachPolicies(groupID, policyIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// DetachGroupPolicies removes many policies, silently skipping absent ones.
func (s *Service) DetachGroupPolicies(ctx context.Context, groupID string, policyIDs []string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.DetachPolicies",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.Int("count", len(policyIDs)),
	)
	defer span.End()

	snap, err := s.groups.DetachPolicies(groupID, policyIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// RemoveAllGroupPolicies clears the policy attachments.
func (s *Service) RemoveAllGroupPolicies(ctx context.Context, groupID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.RemoveAllPolicies",
		attribute.String(telemetry.AttrGroupID, groupID),
	)
	defer span.End()

	snap, err := s.groups.RemoveAllPolicies(groupID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// ListGroupPolicies returns attached policy IDs.
func (s *Service) ListGroupPolicies(ctx context.Context, groupID string) ([]string, error) {
	return s.groups.ListPolicies(groupID)
}

// SetGroupActive moves the group between its active and inactive states.
func (s *Service) SetGroupActive(ctx context.Context, id string, active bool) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.SetActive",
		attribute.String(telemetry.AttrGroupID, id),
		attribute.Bool("group.active", active),
	)
	defer span.End()

	var (
		snap iam.GroupSnapshot
		err  error
	)
	if active {
		snap, err = s.groups.Activate(id)
	} else {
		snap, err = s.groups.Deactivate(id)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// DelegateGroupAdmin grants group administration to a user.
func (s *Service) DelegateGroupAdmin(ctx context.Context, groupID, userID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.DelegateAdmin",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.String(telemetry.AttrUserID, userID),
	)
	defer span.End()

	snap, err := s.groups.DelegateAdmin(groupID, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// RevokeGroupAdmin removes group administration from a user.
func (s *Service) RevokeGroupAdmin(ctx context.Context, groupID, userID string) (iam.GroupSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "groups.RevokeAdmin",
		attribute.String(telemetry.AttrGroupID, groupID),
		attribute.String(telemetry.AttrUserID, userID),
	)
	defer span.End()

	snap, err := s.groups.RevokeAdmin(groupID, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.GroupSnapshot{}, err
	}
	return snap, s.persistGroup(ctx, span, snap)
}

// ExportGroup returns a snapshot suitable for transfer or backup.
func (s *Service) ExportGroup(ctx context.Context, id string) (iam.GroupSnapshot, error) {
	return s.groups.Export(id)
}

func (s *Service) persistGroup(ctx context.Context, span trace.Span, snap iam.GroupSnapshot) error {
	if err := s.store.Groups.Save(ctx, snap); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("persist group %q: %w", snap.ID, err)
	}
	return nil
}
