package worker

import "fmt"

// CampaignDataError marks a running campaign whose stored state cannot be
// processed (missing start date, malformed journey, empty cohort). The
// campaign is skipped for the tick; other campaigns proceed.
type CampaignDataError struct {
	CampaignID uint
	Reason     string
}

func (e *CampaignDataError) Error() string {
	return fmt.Sprintf("campaign %d has unusable data: %s", e.CampaignID, e.Reason)
}

// DispatchError is a failed or timed-out collaborator call for one lead. It
// is recorded in the ledger and never aborts the rest of the batch.
type DispatchError struct {
	LeadID uint
	Cause  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for lead %d: %v", e.LeadID, e.Cause)
}

func (e *DispatchError) Unwrap() error { return e.Cause }

// StoreError is a persistence failure. It aborts the current campaign's step
// at the per-campaign isolation boundary, not the whole tick.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }
