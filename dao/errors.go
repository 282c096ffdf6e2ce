// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dao

import (
	"errors"
	"fmt"
)

// Kind groups error codes by the reason an operation was rejected
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindAuthorization Kind = "authorization"
	KindLookup        Kind = "lookup"
	KindStateConflict Kind = "state_conflict"
	KindPolicy        Kind = "policy_violation"
	KindTiming        Kind = "timing"
)

// Code is a machine-readable rejection reason
type Code string

const (
	// Authorization
	CodeCallerNotActiveMember Code = "CallerNotActiveMember"
	CodeCallerNotMember       Code = "CallerNotMember"
	CodeCallerNotRecipient    Code = "CallerNotRecipient"

	// Lookup
	CodeNoSuchProposal Code = "NoSuchProposal"
	CodeNoJoinRequest  Code = "NoJoinRequest"
	CodeNoSuchRequest  Code = "NoSuchRequest"
	CodeNoSuchMember   Code = "NoSuchMember"

	// State conflict
	CodeAlreadyMember      Code = "AlreadyMember"
	CodeAlreadyApproved    Code = "AlreadyApproved"
	CodeAlreadyVoted       Code = "AlreadyVoted"
	CodeAlreadyWithdrawn   Code = "AlreadyWithdrawn"
	CodeAlreadyReserved    Code = "AlreadyReserved"
	CodeAlreadyImplemented Code = "AlreadyImplemented"
	CodeAlreadyPaid        Code = "AlreadyPaid"
	CodeDuplicateRequest   Code = "DuplicateRequest"

	// Policy violation
	CodeInsufficientBuyIn           Code = "InsufficientBuyIn"
	CodeInsufficientFunds           Code = "InsufficientFunds"
	CodeWrongFeeAmount              Code = "WrongFeeAmount"
	CodeNotEnoughApprovals          Code = "NotEnoughApprovals"
	CodeInsufficientContractBalance Code = "InsufficientContractBalance"
	CodeInvalidParams               Code = "InvalidParams"
	CodeAmountOverflow              Code = "AmountOverflow"
	CodeTransferFailed              Code = "TransferFailed"

	// Timing
	CodeVotingClosed         Code = "VotingClosed"
	CodeVotingNotOver        Code = "VotingNotOver"
	CodeInitialVoteNotPassed Code = "InitialVoteNotPassed"
	CodeReleaseNotPassed     Code = "ReleaseNotPassed"
)

// Error is a rejected DAO operation. Errors compare equal under errors.Is
// when their codes match, regardless of message or cause.
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// withf returns a copy of e carrying a more specific message
func (e *Error) withf(format string, args ...any) *Error {
	ret := *e
	ret.Message = fmt.Sprintf(format, args...)
	return &ret
}

// wrap returns a copy of e with cause attached
func (e *Error) wrap(cause error) *Error {
	ret := *e
	ret.Cause = cause
	return &ret
}

func newError(kind Kind, code Code, msg string) *Error {
	return &Error{Code: code, Kind: kind, Message: msg}
}

var (
	ErrCallerNotActiveMember = newError(KindAuthorization, CodeCallerNotActiveMember, "caller is not an active member")
	ErrCallerNotMember       = newError(KindAuthorization, CodeCallerNotMember, "caller is not a member")
	ErrCallerNotRecipient    = newError(KindAuthorization, CodeCallerNotRecipient, "caller is not the proposal recipient")

	ErrNoSuchProposal = newError(KindLookup, CodeNoSuchProposal, "proposal does not exist")
	ErrNoJoinRequest  = newError(KindLookup, CodeNoJoinRequest, "no join request for caller")
	ErrNoSuchRequest  = newError(KindLookup, CodeNoSuchRequest, "join request does not exist")
	ErrNoSuchMember   = newError(KindLookup, CodeNoSuchMember, "member does not exist")

	ErrAlreadyMember      = newError(KindStateConflict, CodeAlreadyMember, "identity is already a member")
	ErrAlreadyApproved    = newError(KindStateConflict, CodeAlreadyApproved, "join request already approved by caller")
	ErrAlreadyVoted       = newError(KindStateConflict, CodeAlreadyVoted, "caller already voted")
	ErrAlreadyWithdrawn   = newError(KindStateConflict, CodeAlreadyWithdrawn, "funds already withdrawn")
	ErrAlreadyReserved    = newError(KindStateConflict, CodeAlreadyReserved, "funds already reserved")
	ErrAlreadyImplemented = newError(KindStateConflict, CodeAlreadyImplemented, "proposal already implemented")
	ErrAlreadyPaid        = newError(KindStateConflict, CodeAlreadyPaid, "period fee already paid")
	ErrDuplicateRequest   = newError(KindStateConflict, CodeDuplicateRequest, "join request already exists")

	ErrInsufficientBuyIn           = newError(KindPolicy, CodeInsufficientBuyIn, "amount is below the buy-in fee")
	ErrInsufficientFunds           = newError(KindPolicy, CodeInsufficientFunds, "not enough available funds")
	ErrWrongFeeAmount              = newError(KindPolicy, CodeWrongFeeAmount, "wrong period fee amount")
	ErrNotEnoughApprovals          = newError(KindPolicy, CodeNotEnoughApprovals, "not enough approvals")
	ErrInsufficientContractBalance = newError(KindPolicy, CodeInsufficientContractBalance, "not enough available funds, reserve funds first")
	ErrInvalidParams               = newError(KindPolicy, CodeInvalidParams, "invalid parameters")
	ErrAmountOverflow              = newError(KindPolicy, CodeAmountOverflow, "amount overflows")
	ErrTransferFailed              = newError(KindPolicy, CodeTransferFailed, "ledger transfer failed")

	ErrVotingClosed         = newError(KindTiming, CodeVotingClosed, "voting is closed")
	ErrVotingNotOver        = newError(KindTiming, CodeVotingNotOver, "voting is not over")
	ErrInitialVoteNotPassed = newError(KindTiming, CodeInitialVoteNotPassed, "initial vote has not passed")
	ErrReleaseNotPassed     = newError(KindTiming, CodeReleaseNotPassed, "release vote has not passed")
)

// KindOf returns the kind of the DAO error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var daoErr *Error
	if errors.As(err, &daoErr) {
		return daoErr.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the DAO error in err's chain, or ""
func CodeOf(err error) Code {
	var daoErr *Error
	if errors.As(err, &daoErr) {
		return daoErr.Code
	}
	return ""
}
