package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Pack is everything one state plugs into the pipeline. State packages
// register themselves at init; the pipeline resolves (state, stage)
// through this registry instead of by module-path convention.
type Pack struct {
	State         string
	NewDatasource func(pctx *Context) Datasource
	NewFetcher    func(pctx *Context) Fetcher
	Loaders       []LoaderEntry
}

var (
	packsMu sync.Mutex
	packs   = map[string]Pack{}
)

func RegisterPack(p Pack) {
	packsMu.Lock()
	defer packsMu.Unlock()
	state := strings.ToLower(p.State)
	if _, dup := packs[state]; dup {
		panic(fmt.Sprintf("state pack %q registered twice", state))
	}
	p.State = state
	packs[state] = p
}

func PackFor(state string) (Pack, error) {
	packsMu.Lock()
	defer packsMu.Unlock()
	p, ok := packs[strings.ToLower(state)]
	if !ok {
		return Pack{}, fmt.Errorf("unknown state %q", state)
	}
	return p, nil
}

func RegisteredStates() []string {
	packsMu.Lock()
	defer packsMu.Unlock()
	var states []string
	for s := range packs {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}
