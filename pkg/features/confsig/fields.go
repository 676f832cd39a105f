package confsig

import "github.com/zoobzio/capitan"

// Field keys for binding lifecycle events.
var (
	KeyBinding  = capitan.NewStringKey("binding")
	KeyRuntime  = capitan.NewIntKey("runtime")
	KeyReason   = capitan.NewStringKey("reason")
	KeyError    = capitan.NewStringKey("error")
	KeyOldState = capitan.NewStringKey("old_state")
	KeyNewState = capitan.NewStringKey("new_state")
)
