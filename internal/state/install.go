package state

import (
	"fmt"

	"botcore/internal/model"
	"botcore/internal/schema"
)

// InstallService creates a ServiceInstance for def in chatID, seeding
// role lists from participants (spec §3 Lifecycle: "on creation, the
// current group participants are fetched and partitioned into admin
// and member role lists"). Installing an already-installed service is
// an error; callers reinstall by uninstalling first.
func (m *Manager) InstallService(chatID string, chatType model.ChatType, def schema.ServiceDefinition, adminIDs, memberIDs []string) error {
	storageNames := make([]string, 0, len(def.Storage))
	for name := range def.Storage {
		storageNames = append(storageNames, name)
	}
	return m.WithChatLock(chatID, chatType, func(cs *model.ChatState) error {
		if _, exists := cs.Services[def.ID]; exists {
			return fmt.Errorf("state: service %s already installed in chat %s", def.ID, chatID)
		}
		si := model.NewServiceInstance(def.ID, def.Roles, storageNames)
		for _, u := range adminIDs {
			si.AddRole(u, schema.RoleAdmin)
		}
		for _, u := range memberIDs {
			si.AddRole(u, schema.RoleMember)
		}
		cs.Services[def.ID] = si
		return nil
	})
}

// UninstallService removes a service's instance (and its storage)
// from chatID.
func (m *Manager) UninstallService(chatID string, chatType model.ChatType, serviceID string) error {
	return m.WithChatLock(chatID, chatType, func(cs *model.ChatState) error {
		if _, exists := cs.Services[serviceID]; !exists {
			return fmt.Errorf("state: service %s not installed in chat %s", serviceID, chatID)
		}
		delete(cs.Services, serviceID)
		return nil
	})
}
