package domain

import "errors"

var (
	// ErrMissingFields is returned when a submission lacks name, surname or email.
	ErrMissingFields = errors.New("nombre, apellido and correo are required")
	// ErrDuplicateSubmission indicates the email or IP already submitted.
	ErrDuplicateSubmission = errors.New("email or ip already submitted")
	// ErrRecordNotFound indicates no submission exists for the given email.
	ErrRecordNotFound = errors.New("submission record not found")
	// ErrQuestionNotFound indicates a question ID is not part of the record.
	ErrQuestionNotFound = errors.New("question not found in submission")
	// ErrBadPassword indicates the admin password did not match.
	ErrBadPassword = errors.New("admin password mismatch")
	// ErrQuestionBankNotFound indicates the question bank could not be loaded.
	ErrQuestionBankNotFound = errors.New("question bank not found")
)
