package router

import (
	"botcore/internal/state"
	"botcore/internal/storage"
)

// storageFactory lets a handler reach a service's storage manager
// outside its own (chat, service) scope — bound to exec.Context.
// StorageManager for the handful of root/admin handlers that need it
// (one of exec.Context's wider handles beyond a handler's own
// storage/state scope).
type storageFactory struct {
	state *state.Manager
}

// For builds a storage manager scoped to (chatID, serviceID).
func (f *storageFactory) For(chatID, serviceID string) *storage.Manager {
	return storage.NewManager(f.state, chatID, serviceID)
}
