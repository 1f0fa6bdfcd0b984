// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package exchange

// State is the position of an engine in the request/response cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateMatched
	StateRetry
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateMatched:
		return "MATCHED"
	case StateRetry:
		return "RETRY"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}
