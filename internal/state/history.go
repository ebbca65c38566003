package state

import "github.com/elys-network/autofarm/internal/types"

// History exposes the global database as the keeper recorder and the query API reader.
type History struct{}

func (History) NextRunNumber() (int, error) {
	return IncrementRunCounter()
}

func (History) SaveCompoundSnapshot(snapshot types.CompoundSnapshot) (int64, error) {
	return SaveCompoundSnapshot(snapshot)
}

func (History) RecentSnapshots(limit int) ([]types.CompoundSnapshot, error) {
	return GetRecentSnapshots(limit)
}

func (History) SnapshotsForUser(userAddress string, limit int) ([]types.CompoundSnapshot, error) {
	return GetSnapshotsForUser(userAddress, limit)
}

func (History) FeeSummary() (*FeeSummary, error) {
	return GetFeeSummary()
}

func (History) Ping() error {
	return TestDBConnection()
}
