package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestNullableEmptyStringBecomesNil(t *testing.T) {
	if got := nullable(""); got != nil {
		t.Errorf("nullable(\"\") = %v, want nil", got)
	}
	if got := nullable("tz1abc"); got != "tz1abc" {
		t.Errorf("nullable(tz1abc) = %v, want tz1abc", got)
	}
}

func TestNullableTimeZeroBecomesNil(t *testing.T) {
	if got := nullableTime(time.Time{}); got != nil {
		t.Errorf("nullableTime(zero) = %v, want nil", got)
	}
	now := time.Now()
	if got := nullableTime(now); got != now {
		t.Errorf("nullableTime(now) = %v, want %v", got, now)
	}
}

func TestIsNoRows(t *testing.T) {
	if !isNoRows(pgx.ErrNoRows) {
		t.Error("isNoRows(pgx.ErrNoRows) = false, want true")
	}
	if !isNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)) {
		t.Error("isNoRows(wrapped ErrNoRows) = false, want true")
	}
	if isNoRows(errors.New("other error")) {
		t.Error("isNoRows(other) = true, want false")
	}
}
