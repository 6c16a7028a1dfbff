package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Checks(t *testing.T) {
	wrapped := func(err error) error { return fmt.Errorf("load ratings: %w", err) }

	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"missing column", wrapped(ErrMissingColumn), IsMissingColumn, true},
		{"type mismatch", wrapped(ErrTypeMismatch), IsTypeMismatch, true},
		{"empty input", ErrEmptyInput, IsEmptyInput, true},
		{"not prepared", wrapped(ErrNotPrepared), IsNotPrepared, true},
		{"not trained", wrapped(ErrNotTrained), IsNotTrained, true},
		{"store not found", wrapped(ErrStoreNotFound), IsStoreNotFound, true},
		{"other code", ErrNotTrained, IsNotPrepared, false},
		{"plain error", errors.New("boom"), IsMissingColumn, false},
		{"nil", nil, IsNotTrained, false},
		{"not found from another module", NewDomainError(ModuleData, ErrorCodeNotFound, "data: missing"), IsStoreNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetDomainError(t *testing.T) {
	err := fmt.Errorf("row 3: %w", ErrTypeMismatch)
	de := GetDomainError(err)
	if de == nil || de.Module != ModuleData || de.Code != ErrorCodeTypeMismatch {
		t.Fatalf("GetDomainError() = %+v", de)
	}
	if GetDomainError(errors.New("plain")) != nil {
		t.Error("GetDomainError(plain) should be nil")
	}
}
