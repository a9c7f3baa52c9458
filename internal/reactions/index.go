package reactions

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/PravEF/EFNadekoBot/internal/models"
)

// Flag names accepted by ApplyToggle.
const (
	FlagAutoDeleteTrigger = "auto_delete_trigger"
	FlagDmResponse        = "dm_response"
	FlagContainsAnywhere  = "contains_anywhere"
)

// indexState is one immutable generation of the full rule set. Mutations
// build a new state and swap the pointer; a reader holding an old generation
// keeps a consistent view for as long as it wants.
type indexState struct {
	global   []models.Reaction
	byTenant map[uuid.UUID][]models.Reaction
}

// Snapshot is the pair of rule sets relevant to one match evaluation. Both
// slices are shared immutable data and must not be modified.
type Snapshot struct {
	Tenant []models.Reaction
	Global []models.Reaction
}

// Index holds every shard-local reaction, partitioned by scope. Reads are a
// single atomic pointer load and never block; writers serialize among
// themselves but never hold a lock that a reader can observe.
type Index struct {
	state atomic.Pointer[indexState]

	// applyMu serializes writers. The subscriber loop is the only writer in
	// production, but Load and tests also mutate.
	applyMu sync.Mutex
}

func NewIndex() *Index {
	idx := &Index{}
	idx.state.Store(&indexState{byTenant: map[uuid.UUID][]models.Reaction{}})
	return idx
}

// Load bulk-populates the index from the durable rule set, partitioned by
// scope. It replaces whatever the index held before.
func (idx *Index) Load(all []models.Reaction) {
	st := &indexState{byTenant: map[uuid.UUID][]models.Reaction{}}
	for _, r := range all {
		if r.IsGlobal() {
			st.global = append(st.global, r)
		} else {
			st.byTenant[r.TenantID] = append(st.byTenant[r.TenantID], r)
		}
	}

	idx.applyMu.Lock()
	idx.state.Store(st)
	idx.applyMu.Unlock()
}

// Snapshot returns the current global rules plus the tenant's rules. The
// tenant slice is empty for unknown tenants and for uuid.Nil.
func (idx *Index) Snapshot(tenantID uuid.UUID) Snapshot {
	st := idx.state.Load()
	return Snapshot{
		Tenant: st.byTenant[tenantID],
		Global: st.global,
	}
}

// ApplyAdd inserts a reaction into its scope. A reaction whose id is already
// present anywhere in the index is dropped: events can be re-delivered, and
// re-delivery must not grow the rule set.
func (idx *Index) ApplyAdd(r models.Reaction) bool {
	idx.applyMu.Lock()
	defer idx.applyMu.Unlock()

	old := idx.state.Load()
	if _, found := findScope(old, r.ID); found {
		return false
	}

	st := &indexState{global: old.global, byTenant: old.byTenant}
	if r.IsGlobal() {
		st.global = appendCopy(old.global, r)
	} else {
		st.byTenant = cloneTenants(old.byTenant)
		st.byTenant[r.TenantID] = appendCopy(old.byTenant[r.TenantID], r)
	}
	idx.state.Store(st)
	return true
}

// ApplyEdit replaces the response text of the reaction with the given id.
// The edit event does not carry the scope, so every collection is searched.
// Unknown ids are a no-op: the rule was deleted or this shard never saw it.
func (idx *Index) ApplyEdit(id int64, response string) bool {
	return idx.mutate(id, func(r *models.Reaction) {
		r.Response = response
	})
}

// ApplyToggle flips one boolean flag on the reaction with the given id.
// Unknown flag names and unknown ids are no-ops.
func (idx *Index) ApplyToggle(id int64, flag string, value bool) bool {
	switch flag {
	case FlagAutoDeleteTrigger:
		return idx.mutate(id, func(r *models.Reaction) { r.AutoDeleteTrigger = value })
	case FlagDmResponse:
		return idx.mutate(id, func(r *models.Reaction) { r.DmResponse = value })
	case FlagContainsAnywhere:
		return idx.mutate(id, func(r *models.Reaction) { r.ContainsAnywhere = value })
	default:
		return false
	}
}

// ApplyDelete removes the reaction with the given id from whichever scope
// holds it.
func (idx *Index) ApplyDelete(id int64) bool {
	idx.applyMu.Lock()
	defer idx.applyMu.Unlock()

	old := idx.state.Load()
	tenantID, found := findScope(old, id)
	if !found {
		return false
	}

	st := &indexState{global: old.global, byTenant: old.byTenant}
	if tenantID == uuid.Nil {
		st.global = removeByID(old.global, id)
	} else {
		st.byTenant = cloneTenants(old.byTenant)
		remaining := removeByID(old.byTenant[tenantID], id)
		if len(remaining) == 0 {
			delete(st.byTenant, tenantID)
		} else {
			st.byTenant[tenantID] = remaining
		}
	}
	idx.state.Store(st)
	return true
}

// mutate copies the slice holding id, applies fn to the copied entry, and
// swaps in a state referencing the new slice. Returns false if id is unknown.
func (idx *Index) mutate(id int64, fn func(*models.Reaction)) bool {
	idx.applyMu.Lock()
	defer idx.applyMu.Unlock()

	old := idx.state.Load()
	tenantID, found := findScope(old, id)
	if !found {
		return false
	}

	st := &indexState{global: old.global, byTenant: old.byTenant}
	if tenantID == uuid.Nil {
		st.global = editByID(old.global, id, fn)
	} else {
		st.byTenant = cloneTenants(old.byTenant)
		st.byTenant[tenantID] = editByID(old.byTenant[tenantID], id, fn)
	}
	idx.state.Store(st)
	return true
}

// findScope locates id and reports its scope, uuid.Nil meaning global.
func findScope(st *indexState, id int64) (uuid.UUID, bool) {
	for _, r := range st.global {
		if r.ID == id {
			return uuid.Nil, true
		}
	}
	for tenantID, rs := range st.byTenant {
		for _, r := range rs {
			if r.ID == id {
				return tenantID, true
			}
		}
	}
	return uuid.Nil, false
}

func appendCopy(rs []models.Reaction, r models.Reaction) []models.Reaction {
	out := make([]models.Reaction, len(rs), len(rs)+1)
	copy(out, rs)
	return append(out, r)
}

func removeByID(rs []models.Reaction, id int64) []models.Reaction {
	out := make([]models.Reaction, 0, len(rs))
	for _, r := range rs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func editByID(rs []models.Reaction, id int64, fn func(*models.Reaction)) []models.Reaction {
	out := make([]models.Reaction, len(rs))
	copy(out, rs)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
		}
	}
	return out
}

func cloneTenants(m map[uuid.UUID][]models.Reaction) map[uuid.UUID][]models.Reaction {
	out := make(map[uuid.UUID][]models.Reaction, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
