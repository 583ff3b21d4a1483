package domain

import "errors"

var (
	// ErrValidation is returned when required user input (name, course, topic) is missing.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork indicates the remote API could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrProtocol indicates the remote API answered with ok=false or a malformed envelope.
	ErrProtocol = errors.New("protocol error")
	// ErrEmptyResult is returned when a topic has no playable questions.
	ErrEmptyResult = errors.New("no questions available")
	// ErrDataUnavailable is returned when the course catalog cannot be loaded and no usable cache exists.
	ErrDataUnavailable = errors.New("course catalog unavailable")

	// ErrChoiceNotFound indicates a submitted choice is not offered by the current question.
	ErrChoiceNotFound = errors.New("choice not found")
	// ErrSessionNotActive is returned when an operation needs a session in another state.
	ErrSessionNotActive = errors.New("quiz session not active")
	// ErrNoSelection is returned when no course/topic has been confirmed yet.
	ErrNoSelection = errors.New("no topic selected")
	// ErrBusy is returned while a quiz start request is still in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrUnknownScreen is returned for a screen outside the known set.
	ErrUnknownScreen = errors.New("unknown screen")
	// ErrPanelNotFound is returned for an unknown info panel.
	ErrPanelNotFound = errors.New("info panel not found")
)
