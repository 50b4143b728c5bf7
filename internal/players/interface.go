package players

// Store gives read access to player profiles. Profiles are maintained by the
// seeder and admin tooling; the roster engine only reads them.
type Store interface {
	AddPlayer(playerID, name string, level float64)
	UpsertPlayers(players []Player) error
	SetSlackUserID(playerID, slackUserID string) error
	IsKnownPlayer(playerID string) bool
	GetPlayer(playerID string) (*Player, error)
	GetPlayers(playerIDs []string) ([]Player, error)
	GetAllPlayers() ([]Player, error)
}
