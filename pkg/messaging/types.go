package messaging

type ChangeTopic string

const (
	RefreshRequested ChangeTopic = "discovery_refresh"
	SnapshotUpdated  ChangeTopic = "snapshot_updated"
)

func getName(prefix string, topic ChangeTopic) string {
	return prefix + "_" + string(topic)
}
