// Package alerts detects noteworthy Chicago sports events and turns them
// into rate-limited push notifications.
//
// Cycle: fetch scoreboards + feeds → classify against last-seen state →
// anti-spam admission → dispatch → record sends.
//
// All mutable state (game snapshots, seen news links, rate counters) is owned
// by one Orchestrator and lives for the lifetime of that instance.
package alerts

import (
	"time"
)

// --------------------------------------------------------------------------
// Enums
// --------------------------------------------------------------------------

// GameStatus is a contest's lifecycle state as reported by the scoreboard.
type GameStatus string

const (
	StatusPre  GameStatus = "pre"
	StatusIn   GameStatus = "in"
	StatusPost GameStatus = "post"
)

// EventType classifies an AlertEvent.
type EventType string

const (
	ScoreChange  EventType = "SCORE_CHANGE"
	GameStart    EventType = "GAME_START"
	GameEnd      EventType = "GAME_END"
	Injury       EventType = "INJURY"
	Trade        EventType = "TRADE"
	CloseGame    EventType = "CLOSE_GAME"
	Overtime     EventType = "OVERTIME"
	BreakingNews EventType = "BREAKING_NEWS"
	RosterMove   EventType = "ROSTER_MOVE"
)

// IsGameEvent reports whether t belongs to the live-score family.
func (t EventType) IsGameEvent() bool {
	switch t {
	case ScoreChange, GameStart, GameEnd, CloseGame, Overtime:
		return true
	}
	return false
}

// Priority orders events within a dispatch group.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank is 0 for high, 1 for normal, 2 for low (and anything unknown).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	default:
		return 2
	}
}

// CityWideTeam is the team bucket for news not tied to one franchise.
const CityWideTeam = "chicago"

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// GameState is the last observed snapshot of one contest involving a
// tracked Chicago team.
type GameState struct {
	GameID        string
	Sport         string
	HomeTeam      string
	AwayTeam      string
	HomeScore     int
	AwayScore     int
	Period        int
	Clock         string
	Status        GameStatus
	ChicagoTeamID string
	ChicagoIsHome bool
	LastUpdated   time.Time
}

// Key returns the game key: sport + "-" + gameId.
func (s GameState) Key() string {
	return GameKey(s.Sport, s.GameID)
}

// GameKey builds the identity used for state diffing.
func GameKey(sport, gameID string) string {
	return sport + "-" + gameID
}

// AlertEvent is the unit of output. Treat it as immutable once built.
type AlertEvent struct {
	ID        string
	Type      EventType
	GameID    string // empty for news
	Sport     string // empty for news
	Team      string
	Title     string
	Body      string
	Data      map[string]string
	Priority  Priority
	Timestamp time.Time
}

// DispatchKey returns team + "-" + (gameId or "news"), the identity used for
// rate limiting and batching.
func (e AlertEvent) DispatchKey() string {
	if e.GameID == "" {
		return e.Team + "-news"
	}
	return e.Team + "-" + e.GameID
}

// CycleResult is what one RunCycle reports to its caller.
type CycleResult struct {
	Discovered int `json:"discovered"`
	Sent       int `json:"sent"`
	Filtered   int `json:"filtered"`
}
