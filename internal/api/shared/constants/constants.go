package constants

import verifly "github.com/verifly/verifly-go"

const (
	MAX_METHODS_PER_REQUEST = 4
	MAX_EVENTS_PER_SESSION  = 100
)

// DEFAULT_METHODS are offered when a create request names none
var DEFAULT_METHODS = []verifly.Method{verifly.MethodSMS, verifly.MethodWhatsApp}
