package domain

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NodeState uint8

const (
	NodeStateUnvisited NodeState = iota
	NodeStateVisitedChildren
	NodeStateSwappedUrls
	NodeStateRepublished
	NodeStateSkipped
	NodeStateFailed
)

var nodeStateNames = [...]string{"unvisited", "visited_children", "swapped_urls", "republished", "skipped", "failed"}

func (s NodeState) String() string {
	if int(s) < len(nodeStateNames) {
		return nodeStateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

func ParseNodeState(s string) (NodeState, error) {
	for i, name := range nodeStateNames {
		if strings.EqualFold(name, s) {
			return NodeState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node state %q", s)
}

func (s NodeState) Terminal() bool {
	return s == NodeStateRepublished || s == NodeStateSkipped || s == NodeStateFailed
}

type NodeResult struct {
	Key     string     `json:"key" bson:"key"`
	State   NodeState  `json:"state" bson:"state"`
	Swapped []FileType `json:"swapped,omitempty" bson:"swapped,omitempty"`
	Errors  []string   `json:"errors,omitempty" bson:"errors,omitempty"`
}

// PublishReport is the outcome of one publish run. Nodes are listed in the
// order they reached a terminal state.
type PublishReport struct {
	Id            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CourseKey     string             `json:"courseKey" bson:"courseKey"`
	StartedAt     int64              `json:"startedAt" bson:"startedAt"`
	FinishedAt    int64              `json:"finishedAt" bson:"finishedAt"`
	Nodes         []NodeResult       `json:"nodes" bson:"nodes"`
	RootPublished bool               `json:"rootPublished" bson:"rootPublished"`
	Error         string             `json:"error,omitempty" bson:"error,omitempty"`
}

// Republished returns keys of republished nodes in publish order.
func (r PublishReport) Republished() []string {
	var keys []string
	for _, n := range r.Nodes {
		if n.State == NodeStateRepublished {
			keys = append(keys, n.Key)
		}
	}
	return keys
}

func (r PublishReport) Filter(states ...NodeState) []NodeResult {
	if len(states) == 0 {
		return r.Nodes
	}
	var res []NodeResult
	for _, n := range r.Nodes {
		for _, s := range states {
			if n.State == s {
				res = append(res, n)
				break
			}
		}
	}
	return res
}
