package services

// ServiceError is a typed error with an HTTP status code. Controllers are the
// single point that converts it to a JSON body; nothing throws uncaught past
// the handler boundary.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }
