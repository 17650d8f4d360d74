package curation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecisionKind enumerates what an acknowledgment resolved to.
type DecisionKind int

const (
	DecisionApprove DecisionKind = iota + 1
	DecisionReject
	DecisionStop
	DecisionTimeout
	DecisionMalformed
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	case DecisionStop:
		return "stop"
	case DecisionTimeout:
		return "timeout"
	case DecisionMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Channels a decision can arrive through.
const (
	ViaReply   = "reply"
	ViaGesture = "gesture"
	ViaTimer   = "timer"
)

// Decision is the single resolved outcome of one AwaitDecision call.
type Decision struct {
	Kind DecisionKind
	// Index is the 1-based item for DecisionApprove.
	Index int
	Raw   string
	Via   string
}

func (d Decision) String() string {
	if d.Kind == DecisionApprove {
		return fmt.Sprintf("approve(%d) via %s", d.Index, d.Via)
	}
	return fmt.Sprintf("%s via %s", d.Kind, d.Via)
}

func Approve(index int) Decision { return Decision{Kind: DecisionApprove, Index: index} }

// ParseCommand classifies operator text. The grammar is case-insensitive and
// whitespace tolerant:
//
//	approve <positive integer>   (alias: yes <n>)
//	reject                       (alias: no)
//	stop
//
// Anything else is DecisionMalformed rather than ignored.
func ParseCommand(text string) Decision {
	d := Decision{Raw: text, Via: ViaReply, Kind: DecisionMalformed}
	fields := strings.Fields(strings.ToLower(text))
	switch {
	case len(fields) == 1 && (fields[0] == "reject" || fields[0] == "no"):
		d.Kind = DecisionReject
	case len(fields) == 1 && fields[0] == "stop":
		d.Kind = DecisionStop
	case len(fields) == 2 && (fields[0] == "approve" || fields[0] == "yes"):
		if !isDigits(fields[1]) {
			return d
		}
		n, err := strconv.Atoi(fields[1])
		if errors.Is(err, strconv.ErrRange) {
			// too large for any batch, still a positive integer
			n, err = math.MaxInt, nil
		}
		if err != nil || n < 1 {
			return d
		}
		d.Kind = DecisionApprove
		d.Index = n
	}
	return d
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
