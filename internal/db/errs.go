package db

import "errors"

var (
	// database errs.
	ErrDBNotFound = errors.New("database not found")

	// records errs.
	ErrRecordDuplicate     = errors.New("record already exists")
	ErrRecordNotFound      = errors.New("no record found")
	ErrRecordIDNotProvided = errors.New("no id provided")
)
