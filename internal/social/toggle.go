// Package social implements the relation toggle engine: one generic
// set-membership toggle over the five social edge tables (follow, like and
// repost for tracks and playlists). Presence of an edge row defines state;
// toggling is the only mutator.
package social

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
)

var (
	ErrUnknownRelation = errors.New("unknown relation")
	ErrTargetNotFound  = errors.New("target not found")
	ErrBadTargetID     = errors.New("malformed target id")
)

// Relation names one of the toggleable edge kinds.
type Relation string

const (
	RelationFollow         Relation = "follow"
	RelationLikeTrack      Relation = "likeTrack"
	RelationRepostTrack    Relation = "repostTrack"
	RelationLikePlaylist   Relation = "likePlaylist"
	RelationRepostPlaylist Relation = "repostPlaylist"
)

// ParseRelation validates a wire-level relation name.
func ParseRelation(s string) (Relation, error) {
	r := Relation(s)
	if _, ok := specs[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRelation, s)
	}
	return r, nil
}

// relationSpec describes the edge table behind a relation.
type relationSpec struct {
	table         string
	ownerCol      string
	targetCol     string
	targetTable   string
	numericTarget bool
}

var specs = map[Relation]relationSpec{
	RelationFollow:         {"follows", "follower_id", "followee_id", "users", false},
	RelationLikeTrack:      {"track_likes", "user_id", "track_id", "tracks", true},
	RelationRepostTrack:    {"track_reposts", "user_id", "track_id", "tracks", true},
	RelationLikePlaylist:   {"playlist_likes", "user_id", "playlist_id", "playlists", true},
	RelationRepostPlaylist: {"playlist_reposts", "user_id", "playlist_id", "playlists", true},
}

// Action reports which way a toggle flipped.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Result is the outcome of a toggle: the action taken and the owner's full
// resulting target set, in insertion order.
type Result struct {
	Action  Action   `json:"action"`
	Targets []string `json:"resulting_set"`
}

// Engine serializes toggles per (owner, relation) pair so that two concurrent
// toggles cannot both observe the pre-toggle set and lose an update.
type Engine struct {
	db    *gorm.DB
	locks sync.Map
}

// NewEngine creates a toggle engine on the given store.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) lockFor(ownerID string, rel Relation) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(ownerID+"\x00"+string(rel), &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Toggle adds the target to the owner's relation set if absent, removes it if
// present, and returns the action plus the resulting set. The target is
// verified to exist before any mutation; a missing target fails the whole
// operation.
func (e *Engine) Toggle(ownerID string, rel Relation, targetID string) (*Result, error) {
	spec, ok := specs[rel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, rel)
	}

	var target interface{} = targetID
	if spec.numericTarget {
		n, err := strconv.ParseUint(targetID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadTargetID, targetID)
		}
		target = uint(n)
	}

	var count int64
	if err := e.db.Table(spec.targetTable).Where("id = ?", target).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("toggle %s: lookup target %s: %w", rel, targetID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrTargetNotFound, spec.targetTable, targetID)
	}

	mu := e.lockFor(ownerID, rel)
	mu.Lock()
	defer mu.Unlock()

	var edgeIDs []uint
	err := e.db.Table(spec.table).
		Where(spec.ownerCol+" = ? AND "+spec.targetCol+" = ?", ownerID, target).
		Pluck("id", &edgeIDs).Error
	if err != nil {
		return nil, fmt.Errorf("toggle %s: read edge: %w", rel, err)
	}

	action := ActionAdd
	if len(edgeIDs) > 0 {
		action = ActionRemove
		err = e.db.Exec("DELETE FROM "+spec.table+" WHERE id IN ?", edgeIDs).Error
	} else {
		err = e.db.Table(spec.table).Create(map[string]interface{}{
			spec.ownerCol:  ownerID,
			spec.targetCol: target,
			"created_at":   time.Now().UTC(),
		}).Error
	}
	if err != nil {
		return nil, fmt.Errorf("toggle %s: %s edge: %w", rel, action, err)
	}

	targets, err := e.TargetsOf(ownerID, rel)
	if err != nil {
		return nil, err
	}
	return &Result{Action: action, Targets: targets}, nil
}

// TargetsOf returns the owner's full target set for a relation, ordered by
// edge insertion (surviving order is stable across removals, appends go to
// the end).
func (e *Engine) TargetsOf(ownerID string, rel Relation) ([]string, error) {
	spec, ok := specs[rel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, rel)
	}

	targets := []string{}
	err := e.db.Table(spec.table).
		Where(spec.ownerCol+" = ?", ownerID).
		Order("id ASC").
		Pluck(spec.targetCol, &targets).Error
	if err != nil {
		return nil, fmt.Errorf("list %s targets: %w", rel, err)
	}
	return targets, nil
}

// OwnersOf returns the inverse view: every owner holding an edge to target.
// For follow this is the target's follower list.
func (e *Engine) OwnersOf(rel Relation, targetID string) ([]string, error) {
	spec, ok := specs[rel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, rel)
	}

	var target interface{} = targetID
	if spec.numericTarget {
		n, err := strconv.ParseUint(targetID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadTargetID, targetID)
		}
		target = uint(n)
	}

	owners := []string{}
	err := e.db.Table(spec.table).
		Where(spec.targetCol+" = ?", target).
		Order("id ASC").
		Pluck(spec.ownerCol, &owners).Error
	if err != nil {
		return nil, fmt.Errorf("list %s owners: %w", rel, err)
	}
	return owners, nil
}

// Has reports whether the edge (owner, target) currently exists.
func (e *Engine) Has(ownerID string, rel Relation, targetID string) (bool, error) {
	spec, ok := specs[rel]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownRelation, rel)
	}

	var target interface{} = targetID
	if spec.numericTarget {
		n, err := strconv.ParseUint(targetID, 10, 64)
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrBadTargetID, targetID)
		}
		target = uint(n)
	}

	var count int64
	err := e.db.Table(spec.table).
		Where(spec.ownerCol+" = ? AND "+spec.targetCol+" = ?", ownerID, target).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check %s edge: %w", rel, err)
	}
	return count > 0, nil
}
