// Package realtime delivers invalidation signals from the four channels —
// database change-feed, cross-device broadcast, same-process bus, and the
// poller — normalized into one message type the sync engine consumes.
package realtime

// Kind classifies an invalidation.
type Kind string

const (
	// KindUpsert asks for a single-record fetch-and-merge of each id.
	KindUpsert Kind = "upsert"
	// KindDelete removes each id directly; no fetch is needed since nothing
	// beyond identity is required to drop an entry.
	KindDelete Kind = "delete"
	// KindMasterUpdate refreshes the embedded project-master snapshot of
	// every assignment referencing each id.
	KindMasterUpdate Kind = "master_update"
	// KindRefresh re-fetches the whole loaded window.
	KindRefresh Kind = "refresh"
)

// Invalidation is the single internal message every channel adapter emits.
type Invalidation struct {
	Kind Kind
	IDs  []string
}

// Upsert builds a single-id upsert invalidation.
func Upsert(ids ...string) Invalidation { return Invalidation{Kind: KindUpsert, IDs: ids} }

// Delete builds a delete invalidation.
func Delete(ids ...string) Invalidation { return Invalidation{Kind: KindDelete, IDs: ids} }

// MasterUpdate builds a project-master snapshot invalidation.
func MasterUpdate(ids ...string) Invalidation {
	return Invalidation{Kind: KindMasterUpdate, IDs: ids}
}

// Refresh builds a whole-window refresh invalidation.
func Refresh() Invalidation { return Invalidation{Kind: KindRefresh} }
