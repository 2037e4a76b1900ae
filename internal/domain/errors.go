package domain

import "errors"

var (
	// ErrPlayerNotRegistered is returned when a connection acts before registering.
	ErrPlayerNotRegistered = errors.New("player not registered")
	// ErrPlayerNotFound is returned when a connection id has no player entry.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrRoomNotFound is returned for an unknown room id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join would exceed room capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrGameAlreadyStarted is returned when a room has left the waiting state.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrGameNotInProgress is returned for answers outside the playing state.
	ErrGameNotInProgress = errors.New("game not in progress")
	// ErrDilemmaMismatch is returned when a submitted dilemma id is not the
	// room's current one (stale or out-of-order client submission).
	ErrDilemmaMismatch = errors.New("dilemma does not match current round")
	// ErrUnauthorized is returned for creator-only actions by non-creators.
	ErrUnauthorized = errors.New("only the room creator may do that")
	// ErrOptionNotFound indicates a submitted option id is not on the
	// current dilemma.
	ErrOptionNotFound = errors.New("option not found")
	// ErrDilemmaNotFound indicates a dilemma id missing from the catalog.
	ErrDilemmaNotFound = errors.New("dilemma not found")
	// ErrCatalogEmpty indicates a source produced no dilemmas.
	ErrCatalogEmpty = errors.New("dilemma catalog is empty")
)
