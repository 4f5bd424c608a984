package driver

import (
	"sync"
	"time"
)

// OperationState represents the current state of the serial session
type OperationState int

const (
	StateIdle OperationState = iota
	StateEntering
	StateDumping
	StateProbing
	StateSuccess
	StateError
	StateTimeout
)

// String returns the string representation of the state
func (s OperationState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateEntering:
		return "ENTERING_BOOTLOADER"
	case StateDumping:
		return "DUMPING"
	case StateProbing:
		return "PROBING"
	case StateSuccess:
		return "SUCCESS"
	case StateError:
		return "ERROR"
	case StateTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// running reports whether a driver owns the port in this state
func (s OperationState) running() bool {
	return s == StateEntering || s == StateDumping || s == StateProbing
}

// StatusInfo contains detailed status information for broadcasting
type StatusInfo struct {
	State     string    `json:"state"`
	Message   string    `json:"message"`
	Operation string    `json:"operation,omitempty"`
	Port      string    `json:"port,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	ElapsedMs int64     `json:"elapsed_ms"`
	LastError string    `json:"last_error,omitempty"`
	Records   int       `json:"records,omitempty"`
}

// StateChangeCallback is called when state changes
type StateChangeCallback func(info StatusInfo)

// StateMachine tracks the operation running on the session, thread-safe
type StateMachine struct {
	mu sync.RWMutex

	currentState OperationState
	stateStarted time.Time
	lastError    string
	operation    string
	port         string
	records      int

	onStateChange StateChangeCallback
}

// NewStateMachine creates a new state machine
func NewStateMachine(port string) *StateMachine {
	return &StateMachine{
		currentState: StateIdle,
		port:         port,
	}
}

// SetCallback sets the state change callback
func (sm *StateMachine) SetCallback(cb StateChangeCallback) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = cb
}

// GetState returns the current state
func (sm *StateMachine) GetState() OperationState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// GetStatusInfo returns the current status information
func (sm *StateMachine) GetStatusInfo() StatusInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getStatusInfoLocked()
}

func (sm *StateMachine) getStatusInfoLocked() StatusInfo {
	info := StatusInfo{
		State:     sm.currentState.String(),
		Operation: sm.operation,
		Port:      sm.port,
		LastError: sm.lastError,
		Records:   sm.records,
	}

	if sm.currentState != StateIdle {
		info.StartedAt = sm.stateStarted
		info.ElapsedMs = time.Since(sm.stateStarted).Milliseconds()
	}

	// Generate message based on state
	switch sm.currentState {
	case StateIdle:
		info.Message = "Ready"
	case StateEntering:
		info.Message = "Driving RESET/BOOT and waiting for ACK..."
	case StateDumping:
		info.Message = "Reading external flash..."
	case StateProbing:
		info.Message = "Probing UART receive timeout..."
	case StateSuccess:
		info.Message = sm.operation + " completed"
	case StateError:
		info.Message = sm.operation + " failed: " + sm.lastError
	case StateTimeout:
		info.Message = "Timeout waiting for data"
	}

	return info
}

func (sm *StateMachine) notifyLocked() {
	if sm.onStateChange != nil {
		sm.onStateChange(sm.getStatusInfoLocked())
	}
}

// Begin claims the session for an operation and enters its running state
// in one step, so a second Begin fails until the operation finishes.
func (sm *StateMachine) Begin(operation string, state OperationState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.currentState.running() {
		return ErrOperationInProgress
	}
	if !state.running() {
		return &OperationError{Message: "not a running state: " + state.String()}
	}

	sm.operation = operation
	sm.lastError = ""
	sm.records = 0
	sm.currentState = state
	sm.stateStarted = time.Now()

	sm.notifyLocked()
	return nil
}

// TransitionTo changes to a new state
func (sm *StateMachine) TransitionTo(newState OperationState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.currentState = newState
	sm.stateStarted = time.Now()

	// Clear error on non-error states
	if newState != StateError && newState != StateTimeout {
		sm.lastError = ""
	}

	sm.notifyLocked()
}

// TransitionToError transitions to error state with a message
func (sm *StateMachine) TransitionToError(err string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.currentState = StateError
	sm.stateStarted = time.Now()
	sm.lastError = err

	sm.notifyLocked()
}

// TransitionToTimeout transitions to timeout state
func (sm *StateMachine) TransitionToTimeout() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.currentState = StateTimeout
	sm.stateStarted = time.Now()
	sm.lastError = ErrReceiveTimeout.Error()

	sm.notifyLocked()
}

// AddRecord counts a forwarded dump record without notifying
func (sm *StateMachine) AddRecord() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.records++
}

// Reset returns the state machine to idle
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.currentState = StateIdle
	sm.operation = ""
	sm.records = 0
	sm.stateStarted = time.Time{}

	sm.notifyLocked()
}

// Error definitions
var ErrOperationInProgress = &OperationError{Message: "operation already in progress"}

type OperationError struct {
	Message string
}

func (e *OperationError) Error() string {
	return e.Message
}
