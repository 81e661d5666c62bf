package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/repository"
	"github.com/stackbound/aegis/internal/telemetry"
)

const tracerName = "aegis/services/identity"

// Service orchestrates the in-memory registries and their persistence. The
// registries are the source of truth at runtime; every successful mutation is
// written through to the store as a full snapshot.
type Service struct {
	users    *iam.UserRegistry
	groups   *iam.GroupRegistry
	roles    *iam.RoleRegistry
	policies *iam.PolicyRegistry
	store    *repository.Store
}

// NewService constructs a Service with empty registries.
func NewService(store *repository.Store) *Service {
	return &Service{
		users:    iam.NewUserRegistry(),
		groups:   iam.NewGroupRegistry(),
		roles:    iam.NewRoleRegistry(),
		policies: iam.NewPolicyRegistry(),
		store:    store,
	}
}

// Load hydrates all registries from the store. Called once at startup.
func (s *Service) Load(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "identity.Load")
	defer span.End()

	users, err := s.store.Users.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load users: %w", err)
	}
	for _, snap := range users {
		if err := s.users.Import(snap); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("import user %q: %w", snap.ID, err)
		}
	}

	groups, err := s.store.Groups.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load groups: %w", err)
	}
	for _, snap := range groups {
		s.groups.Import(snap)
	}

	roles, err := s.store.Roles.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load roles: %w", err)
	}
	for _, snap := range roles {
		s.roles.Import(snap)
	}

	policies, err := s.store.Policies.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load policies: %w", err)
	}
	for _, snap := range policies {
		if err := s.policies.Import(snap); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("import policy %q: %w", snap.ID, err)
		}
	}

	telemetry.AddEvent(span, "registries.loaded",
		attribute.Int("users", len(users)),
		attribute.Int("groups", len(groups)),
		attribute.Int("roles", len(roles)),
		attribute.Int("policies", len(policies)),
	)
	return nil
}

// generateAccessKeyID produces a fresh key id in the required format.
func generateAccessKeyID() (string, error) {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate access key id: %w", err)
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return "AKIA" + string(buf), nil
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// --- Users ---

// CreateUser registers a new user and persists it. A missing ID is generated.
func (s *Service) CreateUser(ctx context.Context, params iam.UserParams) (iam.UserSnapshot, error) {
	params.ID = newID(params.ID)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.Create",
		attribute.String(telemetry.AttrUserID, params.ID),
		attribute.String(telemetry.AttrUserName, params.Name),
	)
	defer span.End()

	snap, err := s.users.Create(params)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// GetUser returns a user snapshot.
func (s *Service) GetUser(ctx context.Context, id string) (iam.UserSnapshot, error) {
	snap, ok := s.users.GetByID(id)
	if !ok {
		return iam.UserSnapshot{}, iam.ErrUserNotFound
	}
	return snap, nil
}

// ListUsers returns all user snapshots.
func (s *Service) ListUsers(ctx context.Context) []iam.UserSnapshot {
	return s.users.List()
}

// UserExists reports whether a username is taken.
func (s *Service) UserExists(ctx context.Context, name string) bool {
	return s.users.Exists(name)
}

// UpdateUser applies a partial update and persists the result.
func (s *Service) UpdateUser(ctx context.Context, id string, upd iam.UserUpdate) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.Update",
		attribute.String(telemetry.AttrUserID, id),
	)
	defer span.End()

	snap, err := s.users.Update(id, upd)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// RemoveUser deletes the user from the registry and the store.
func (s *Service) RemoveUser(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.Remove",
		attribute.String(telemetry.AttrUserID, id),
	)
	defer span.End()

	if err := s.users.Remove(id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.store.Users.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// RegisterLogin records a successful login.
func (s *Service) RegisterLogin(ctx context.Context, id string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.RegisterLogin",
		attribute.String(telemetry.AttrUserID, id),
	)
	defer span.End()

	snap, err := s.users.RegisterLogin(id)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// SetMFA enables or disables multi-factor authentication.
func (s *Service) SetMFA(ctx context.Context, id string, enabled bool) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.SetMFA",
		attribute.String(telemetry.AttrUserID, id),
		attribute.Bool("mfa.enabled", enabled),
	)
	defer span.End()

	var (
		snap iam.UserSnapshot
		err  error
	)
	if enabled {
		snap, err = s.users.EnableMFA(id)
	} else {
		snap, err = s.users.DisableMFA(id)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// AddAccessKey creates a credential for the user. An empty key id is
// generated server side. Returns the plaintext secret exactly once.
func (s *Service) AddAccessKey(ctx context.Context, id, key string) (iam.UserSnapshot, string, string, error) {
	if key == "" {
		generated, err := generateAccessKeyID()
		if err != nil {
			return iam.UserSnapshot{}, "", "", err
		}
		key = generated
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.AddAccessKey",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrAccessKey, key),
	)
	defer span.End()

	snap, secret, err := s.users.AddAccessKey(id, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, "", "", err
	}
	return snap, key, secret, s.persistUser(ctx, span, snap)
}

// RemoveAccessKey deletes a credential by value.
func (s *Service) RemoveAccessKey(ctx context.Context, id, key string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.RemoveAccessKey",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrAccessKey, key),
	)
	defer span.End()

	snap, err := s.users.RemoveAccessKey(id, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// DisableAccessKey deactivates a credential. There is no reactivation.
func (s *Service) DisableAccessKey(ctx context.Context, id, key string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.DisableAccessKey",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrAccessKey, key),
	)
	defer span.End()

	snap, err := s.users.DisableAccessKey(id, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// SetAccessKeyExpiration sets when a credential stops validating.
func (s *Service) SetAccessKeyExpiration(ctx context.Context, id, key string, expireAt time.Time) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.SetAccessKeyExpiration",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrAccessKey, key),
	)
	defer span.End()

	snap, err := s.users.SetAccessKeyExpiration(id, key, expireAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// RotateAccessKey disables the old credential and issues a new one. The new
// key id is generated when empty. Fails at the credential ceiling.
func (s *Service) RotateAccessKey(ctx context.Context, id, oldKey, newKey string) (iam.UserSnapshot, string, string, error) {
	if newKey == "" {
		generated, err := generateAccessKeyID()
		if err != nil {
			return iam.UserSnapshot{}, "", "", err
		}
		newKey = generated
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.RotateAccessKey",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrAccessKey, newKey),
	)
	defer span.End()

	snap, secret, err := s.users.RotateAccessKey(id, oldKey, newKey)
	if err != nil {
		telemetry.RecordError(span, err)
		// The disable half may have landed even when the add failed.
		if cur, ok := s.users.GetByID(id); ok {
			if perr := s.store.Users.Save(ctx, cur); perr != nil {
				telemetry.RecordError(span, perr)
			}
		}
		return iam.UserSnapshot{}, "", "", err
	}
	return snap, newKey, secret, s.persistUser(ctx, span, snap)
}

// IsAccessKeyValid reports point-in-time validity of a credential.
func (s *Service) IsAccessKeyValid(ctx context.Context, id, key string) (bool, error) {
	return s.users.IsAccessKeyValid(id, key)
}

// VerifyAccessKeySecret compares a presented secret against the stored hash.
func (s *Service) VerifyAccessKeySecret(ctx context.Context, id, key, secret string) (bool, error) {
	return s.users.VerifyAccessKeySecret(id, key, secret)
}

// AccessKeyStatus lists a user's credentials without secret material.
func (s *Service) AccessKeyStatus(ctx context.Context, id string) ([]iam.KeyStatus, error) {
	return s.users.AccessKeyStatus(id)
}

// AttachUserPolicy records a user→policy edge.
func (s *Service) AttachUserPolicy(ctx context.Context, id, policyID string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.AttachPolicy",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrPolicyID, policyID),
	)
	defer span.End()

	snap, err := s.users.AttachPolicy(id, policyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// DetachUserPolicy removes a user→policy edge.
func (s *Service) DetachUserPolicy(ctx context.Context, id, policyID string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.DetachPolicy",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrPolicyID, policyID),
	)
	defer span.End()

	snap, err := s.users.DetachPolicy(id, policyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// ListUserPolicies returns a user's attached policy IDs.
func (s *Service) ListUserPolicies(ctx context.Context, id string) ([]string, error) {
	return s.users.ListAttachedPolicies(id)
}

// AttachUserRole records a user→role edge.
func (s *Service) AttachUserRole(ctx context.Context, id, roleID string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.AttachRole",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrRoleID, roleID),
	)
	defer span.End()

	snap, err := s.users.AttachRole(id, roleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// DetachUserRole removes a user→role edge.
func (s *Service) DetachUserRole(ctx context.Context, id, roleID string) (iam.UserSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "users.DetachRole",
		attribute.String(telemetry.AttrUserID, id),
		attribute.String(telemetry.AttrRoleID, roleID),
	)
	defer span.End()

	snap, err := s.users.DetachRole(id, roleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return iam.UserSnapshot{}, err
	}
	return snap, s.persistUser(ctx, span, snap)
}

// ListUserRoles returns a user's attached role IDs.
func (s *Service) ListUserRoles(ctx context.Context, id string) ([]string, error) {
	return s.users.ListRoles(id)
}

// ListUserGroups returns the groups that hold the user as a member.
func (s *Service) ListUserGroups(ctx context.Context, userID string) []iam.GroupSnapshot {
	return s.groups.ListUserGroups(userID)
}

func (s *Service) persistUser(ctx context.Context, span trace.Span, snap iam.UserSnapshot) error {
	if err := s.store.Users.Save(ctx, snap); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("persist user %q: %w", snap.ID, err)
	}
	return nil
}
