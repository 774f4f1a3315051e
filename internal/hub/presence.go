package hub

// PresenceManager tracks each user's cursor and selection in a room. It is
// owned by the room goroutine.
type PresenceManager struct {
	presences map[string]*PresencePayload // userID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{presences: make(map[string]*PresencePayload)}
}

func (pm *PresenceManager) Update(userID string, p *PresencePayload) {
	pm.presences[userID] = p
}

func (pm *PresenceManager) Remove(userID string) {
	delete(pm.presences, userID)
}

// Prune drops shape ids that no longer exist from every selection.
func (pm *PresenceManager) Prune(exists func(id string) bool) {
	for _, p := range pm.presences {
		kept := p.Selection[:0]
		for _, id := range p.Selection {
			if exists(id) {
				kept = append(kept, id)
			}
		}
		p.Selection = kept
	}
}

func (pm *PresenceManager) StateMessage() *Message {
	all := make(map[string]*PresencePayload, len(pm.presences))
	for k, v := range pm.presences {
		all[k] = v
	}
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: all})
}
