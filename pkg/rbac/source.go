package rbac

import (
	"context"
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Platform roles.
const (
	RoleDoctor   = "doctor"
	RoleHospital = "hospital"
	RoleAdmin    = "admin"
)

// Notification permissions.
const (
	PermNotificationsRead      = "notifications.read"
	PermNotificationsModerate  = "notifications.moderate"
	PermNotificationsBroadcast = "notifications.broadcast"
)

// DefaultRoles is the built-in role table used when no role file is
// configured.
func DefaultRoles() map[string]Role {
	return map[string]Role{
		RoleDoctor:   {Permissions: []string{PermNotificationsRead}},
		RoleHospital: {Permissions: []string{PermNotificationsRead}},
		RoleAdmin: {
			Permissions: []string{"notifications.*"},
			Inherits:    []string{RoleDoctor, RoleHospital},
		},
	}
}

type memorySource struct {
	roles map[string]Role
}

// NewMemorySource serves a copy of roles.
func NewMemorySource(roles map[string]Role) RoleSource {
	return &memorySource{roles: maps.Clone(roles)}
}

func (s *memorySource) Load(context.Context) (map[string]Role, error) {
	return s.roles, nil
}

type yamlFile struct {
	Roles map[string]Role `yaml:"roles"`
}

type yamlSource struct {
	path string
}

// NewYAMLSource reads roles from a file shaped like:
//
//	roles:
//	  doctor:
//	    permissions: [notifications.read]
//	  admin:
//	    permissions: ["notifications.*"]
//	    inherits: [doctor]
func NewYAMLSource(path string) RoleSource {
	return &yamlSource{path: path}
}

func (s *yamlSource) Load(context.Context) (map[string]Role, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read role file: %w", err)
	}
	return ParseYAML(raw)
}

// ParseYAML decodes a role document.
func ParseYAML(raw []byte) (map[string]Role, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse role file: %w", err)
	}
	if doc.Roles == nil {
		doc.Roles = map[string]Role{}
	}
	return doc.Roles, nil
}
