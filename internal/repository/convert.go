package repository

import (
	"sort"
	"strconv"
	"strings"

	"github.com/stackbound/aegis/internal/db/models"
	"github.com/stackbound/aegis/internal/iam"
)

func toUserModel(snap iam.UserSnapshot) *models.User {
	keys := make(models.AccessKeyList, 0, len(snap.AccessKeys))
	for _, k := range snap.AccessKeys {
		keys = append(keys, models.AccessKeyItem{
			Key:        k.Key,
			SecretHash: k.SecretHash,
			Active:     k.Active,
			CreatedAt:  k.CreatedAt,
			ExpireAt:   k.ExpireAt,
		})
	}
	return &models.User{
		ID:          snap.ID,
		Name:        snap.Name,
		Email:       snap.Email,
		Phone:       snap.Phone,
		Status:      snap.Status,
		Metadata:    models.Metadata(snap.Metadata),
		MFAEnabled:  snap.MFAEnabled,
		LoginCount:  snap.LoginCount,
		LastLoginAt: snap.LastLoginAt,
		AccessKeys:  keys,
		Policies:    models.StringList(snap.Policies),
		Roles:       models.StringList(snap.Roles),
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
}

func fromUserModel(m *models.User) iam.UserSnapshot {
	keys := make([]iam.AccessKey, 0, len(m.AccessKeys))
	for _, k := range m.AccessKeys {
		keys = append(keys, iam.AccessKey{
			Key:        k.Key,
			SecretHash: k.SecretHash,
			Active:     k.Active,
			CreatedAt:  k.CreatedAt,
			ExpireAt:   k.ExpireAt,
		})
	}
	return iam.UserSnapshot{
		ID:          m.ID,
		Name:        m.Name,
		Email:       m.Email,
		Phone:       m.Phone,
		Status:      m.Status,
		Metadata:    map[string]string(m.Metadata),
		MFAEnabled:  m.MFAEnabled,
		LoginCount:  m.LoginCount,
		LastLoginAt: m.LastLoginAt,
		AccessKeys:  keys,
		Policies:    []string(m.Policies),
		Roles:       []string(m.Roles),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toGroupModel(snap iam.GroupSnapshot) *models.Group {
	return &models.Group{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		Active:      snap.Active,
		Essential:   snap.Essential,
		Members:     models.StringList(snap.Members),
		Admins:      models.StringList(snap.Admins),
		Policies:    models.StringList(snap.Policies),
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
}

func fromGroupModel(m *models.Group) iam.GroupSnapshot {
	return iam.GroupSnapshot{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Active:      m.Active,
		Essential:   m.Essential,
		Members:     []string(m.Members),
		Admins:      []string(m.Admins),
		Policies:    []string(m.Policies),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toRoleModel(snap iam.RoleSnapshot) *models.Role {
	history := make(models.RevisionList, 0, len(snap.History))
	for _, h := range snap.History {
		history = append(history, models.RevisionItem{
			Name:        h.Name,
			Description: h.Description,
			UpdatedAt:   h.UpdatedAt,
		})
	}
	return &models.Role{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		Policies:    models.StringList(snap.Policies),
		History:     history,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
}

func fromRoleModel(m *models.Role) iam.RoleSnapshot {
	history := make([]iam.RoleRevision, 0, len(m.History))
	for _, h := range m.History {
		history = append(history, iam.RoleRevision{
			Name:        h.Name,
			Description: h.Description,
			UpdatedAt:   h.UpdatedAt,
		})
	}
	return iam.RoleSnapshot{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Policies:    []string(m.Policies),
		History:     history,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toPolicyModel(snap iam.PolicySnapshot) (*models.Policy, []*models.PolicyVersion) {
	var doc models.Document
	versions := make([]*models.PolicyVersion, 0, len(snap.Versions))
	for _, v := range snap.Versions {
		versions = append(versions, &models.PolicyVersion{
			PolicyID:  snap.ID,
			VersionID: v.VersionID,
			Document:  models.Document(v.Document),
			CreatedAt: v.CreatedAt,
		})
		if v.VersionID == snap.DefaultVersionID {
			doc = models.Document(v.Document)
		}
	}
	head := &models.Policy{
		ID:               snap.ID,
		Name:             snap.Name,
		Description:      snap.Description,
		DefaultVersionID: snap.DefaultVersionID,
		Document:         doc,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        snap.UpdatedAt,
	}
	return head, versions
}

func fromPolicyModel(m *models.Policy) iam.PolicySnapshot {
	versions := make([]iam.PolicyVersion, 0, len(m.Versions))
	for _, v := range m.Versions {
		versions = append(versions, iam.PolicyVersion{
			VersionID: v.VersionID,
			Document:  iam.PolicyDocument(v.Document),
			CreatedAt: v.CreatedAt,
		})
	}
	// Restore append order by numeric version suffix; lexicographic DB
	// ordering puts v10 before v2.
	sort.Slice(versions, func(i, j int) bool {
		return versionNumber(versions[i].VersionID) < versionNumber(versions[j].VersionID)
	})
	return iam.PolicySnapshot{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		DefaultVersionID: m.DefaultVersionID,
		Versions:         versions,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func versionNumber(versionID string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(versionID, "v"))
	if err != nil {
		return 0
	}
	return n
}
