package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// User represents a persisted human principal. Edge sets (policies, roles)
// and the access key set are stored denormalized as jsonb so the record
// rehydrates in one read.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string        `bun:"id,pk"`
	Name        string        `bun:"name,notnull,unique"`
	Email       string        `bun:"email,notnull"`
	Phone       string        `bun:"phone"`
	Status      string        `bun:"status"`
	Metadata    Metadata      `bun:"metadata,type:jsonb"`
	MFAEnabled  bool          `bun:"mfa_enabled,notnull,default:false"`
	LoginCount  int           `bun:"login_count,notnull,default:0"`
	LastLoginAt *time.Time    `bun:"last_login_at"`
	AccessKeys  AccessKeyList `bun:"access_keys,type:jsonb,notnull,default:'[]'"`
	Policies    StringList    `bun:"policies,type:jsonb,notnull,default:'[]'"`
	Roles       StringList    `bun:"roles,type:jsonb,notnull,default:'[]'"`
	CreatedAt   time.Time     `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   *time.Time    `bun:"updated_at"`
}

// ValidateForCreate verifies the record is well formed before insertion.
func (u *User) ValidateForCreate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// Group represents a persisted principal collection.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID          string     `bun:"id,pk"`
	Name        string     `bun:"name,notnull"`
	Description string     `bun:"description"`
	Active      bool       `bun:"active,notnull,default:true"`
	Essential   bool       `bun:"essential,notnull,default:false"`
	Members     StringList `bun:"members,type:jsonb,notnull,default:'[]'"`
	Admins      StringList `bun:"admins,type:jsonb,notnull,default:'[]'"`
	Policies    StringList `bun:"policies,type:jsonb,notnull,default:'[]'"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   *time.Time `bun:"updated_at"`
}

// Role represents a persisted assumable principal with its revision log.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string       `bun:"id,pk"`
	Name        string       `bun:"name,notnull"`
	Description string       `bun:"description"`
	Policies    StringList   `bun:"policies,type:jsonb,notnull,default:'[]'"`
	History     RevisionList `bun:"history,type:jsonb,notnull,default:'[]'"`
	CreatedAt   time.Time    `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   *time.Time   `bun:"updated_at"`
}

// Policy represents a persisted policy head record. The document column is
// denormalized from the default version; the full history lives in
// policy_versions.
type Policy struct {
	bun.BaseModel `bun:"table:policies,alias:p"`

	ID               string     `bun:"id,pk"`
	Name             string     `bun:"name,notnull"`
	Description      string     `bun:"description"`
	DefaultVersionID string     `bun:"default_version_id,notnull"`
	Document         Document   `bun:"document,type:jsonb"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt        *time.Time `bun:"updated_at"`

	Versions []*PolicyVersion `bun:"rel:has-many,join:id=policy_id"`
}

// PolicyVersion is one immutable row of a policy's version history.
// Rows are only ever inserted, never updated.
type PolicyVersion struct {
	bun.BaseModel `bun:"table:policy_versions,alias:pv"`

	PolicyID  string    `bun:"policy_id,pk"`
	VersionID string    `bun:"version_id,pk"`
	Document  Document  `bun:"document,type:jsonb"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
