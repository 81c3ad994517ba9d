package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

func TestReadFeed(t *testing.T) {
	csv := `account_id,amount,counterparty,channel,timestamp,is_fraud
acct-1,2500,Amazon,online,2025-03-12T14:00:00Z,0
acct-2,not-a-number,Amazon,online,2025-03-12T14:00:00Z,0
acct-3,0,Amazon,online,,1
acct-4,75000,Lucky Casino,TRANSFER,,1
acct-5,10,Corner Shop,pos,yesterday,0
`
	rows, skipped, err := ReadFeed(strings.NewReader(csv), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, rows, 2)

	assert.Equal(t, "acct-1", rows[0].Event.AccountID)
	assert.Equal(t, "2500", rows[0].Event.Amount.String())
	assert.Equal(t, domain.ChannelOnline, rows[0].Event.Channel)
	assert.Equal(t, time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC), rows[0].Event.Timestamp)
	assert.False(t, rows[0].IsFraud)

	assert.Equal(t, "Lucky Casino", rows[1].Event.Counterparty)
	assert.Equal(t, domain.ChannelTransfer, rows[1].Event.Channel)
	assert.True(t, rows[1].Event.Timestamp.IsZero())
	assert.True(t, rows[1].IsFraud)
}

func TestReadFeedPaySimColumns(t *testing.T) {
	csv := `step,type,amount,nameOrig,oldbalanceOrg,newbalanceOrig,nameDest,oldbalanceDest,newbalanceDest,isFraud,isFlaggedFraud
1,CASH_OUT,181.0,C840083671,181.0,0.0,C38997010,21182.0,0.0,1,0
1,PAYMENT,9839.64,C1231006815,170136.0,160296.36,M1979787155,0.0,0.0,0,0
`
	rows, skipped, err := ReadFeed(strings.NewReader(csv), 1)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, rows, 1)

	assert.Equal(t, "C840083671", rows[0].Event.AccountID)
	assert.Equal(t, "C38997010", rows[0].Event.Counterparty)
	assert.Equal(t, domain.ChannelATM, rows[0].Event.Channel)
	assert.True(t, rows[0].IsFraud)
}

func TestReadFeedMissingColumns(t *testing.T) {
	_, _, err := ReadFeed(strings.NewReader("account_id,amount\nacct-1,10\n"), 0)
	assert.ErrorContains(t, err, "label")
}

func TestReport(t *testing.T) {
	r := NewReport()
	r.Record(true, true, domain.StatusBlocked, 10*time.Millisecond)
	r.Record(true, false, domain.StatusFlagged, 20*time.Millisecond)
	r.Record(false, true, domain.StatusReview, 30*time.Millisecond)
	r.Record(false, false, domain.StatusApproved, 40*time.Millisecond)
	r.Record(false, false, domain.StatusApproved, 50*time.Millisecond)
	r.Fail()

	assert.Equal(t, 1, r.TruePositives)
	assert.Equal(t, 1, r.FalsePositives)
	assert.Equal(t, 1, r.FalseNegatives)
	assert.Equal(t, 2, r.TrueNegatives)
	assert.Equal(t, 1, r.Errors)

	assert.InDelta(t, 0.5, r.Precision(), 1e-9)
	assert.InDelta(t, 0.5, r.Recall(), 1e-9)
	assert.InDelta(t, 0.5, r.F1(), 1e-9)
	assert.InDelta(t, 0.6, r.Accuracy(), 1e-9)

	assert.Equal(t, 30*time.Millisecond, r.Percentile(50))
	assert.Equal(t, 50*time.Millisecond, r.Percentile(99))
	assert.Equal(t, 10*time.Millisecond, r.Percentile(1))
	assert.Equal(t, 2, r.Statuses()[domain.StatusApproved])

	empty := NewReport()
	assert.Zero(t, empty.Precision())
	assert.Zero(t, empty.F1())
	assert.Zero(t, empty.Percentile(95))
}
