package gen

import "errors"

// Sentinel errors for instance generation.
var (
	// ErrLayoutEmpty means dungeon layout produced neither rooms nor tiles.
	// The whole job aborts: no instance is registered, no portal opens.
	ErrLayoutEmpty = errors.New("dungeon layout produced no rooms or tiles")

	ErrUnknownTier      = errors.New("mission references unknown difficulty tier")
	ErrUnknownFaction   = errors.New("mission references unknown faction")
	ErrSpaceGone        = errors.New("generation space was deleted mid-run")
	ErrAlreadyFinished  = errors.New("generation run already finished")
	ErrUnknownRuleKind  = errors.New("unknown guaranteed loot rule kind")
)
