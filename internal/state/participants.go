package state

import (
	"botcore/internal/model"
	"botcore/internal/schema"
)

// ParticipantEventType is the kind of group.participants webhook (spec
// §6 inbound event shape).
type ParticipantEventType string

const (
	ParticipantJoin    ParticipantEventType = "join"
	ParticipantLeave   ParticipantEventType = "leave"
	ParticipantPromote ParticipantEventType = "promote"
	ParticipantDemote  ParticipantEventType = "demote"
)

// ApplyParticipantEvent mutates every installed service's role lists
// in chatID per spec §6: join/demote add or restore member, promote
// moves a user to admin, leave removes the user from every role list
// in every installed service.
func (m *Manager) ApplyParticipantEvent(chatID string, chatType model.ChatType, eventType ParticipantEventType, jids []string) error {
	return m.WithChatLock(chatID, chatType, func(cs *model.ChatState) error {
		for _, si := range cs.Services {
			for _, userID := range jids {
				switch eventType {
				case ParticipantJoin, ParticipantDemote:
					si.RemoveRole(userID, schema.RoleAdmin)
					si.AddRole(userID, schema.RoleMember)
				case ParticipantPromote:
					si.RemoveRole(userID, schema.RoleMember)
					si.AddRole(userID, schema.RoleAdmin)
				case ParticipantLeave:
					si.RemoveUserEverywhere(userID)
				}
			}
		}
		return nil
	})
}
