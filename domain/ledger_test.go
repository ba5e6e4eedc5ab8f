package domain

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func textMessage(body string) Message {
	return Message{ID: uuid.New(), Author: "alice", Body: body, Kind: KindText}
}

func TestLedger_Append_Keeps_Insertion_Order(t *testing.T) {
	req := require.New(t)
	ledger := NewLedger(10)

	// When three messages arrive
	ledger.Append(textMessage("one"))
	ledger.Append(textMessage("two"))
	ledger.Append(textMessage("three"))

	// Then the snapshot preserves arrival order
	snap := ledger.Snapshot()
	req.Len(snap, 3)
	req.Equal("one", snap[0].Body)
	req.Equal("two", snap[1].Body)
	req.Equal("three", snap[2].Body)
}

func TestLedger_Append_Evicts_Oldest_Past_Capacity(t *testing.T) {
	req := require.New(t)
	ledger := NewLedger(100)

	// Given 101 appended messages
	for i := 1; i <= 101; i++ {
		ledger.Append(textMessage(fmt.Sprintf("msg-%d", i)))
	}

	// Then only the most recent 100 remain, oldest first
	snap := ledger.Snapshot()
	req.Len(snap, 100)
	req.Equal("msg-2", snap[0].Body)
	req.Equal("msg-101", snap[99].Body)
}

func TestLedger_Find_Misses_Evicted_Message(t *testing.T) {
	req := require.New(t)
	ledger := NewLedger(2)
	first := textMessage("first")

	ledger.Append(first)
	ledger.Append(textMessage("second"))
	ledger.Append(textMessage("third"))

	// The first message fell off the head
	_, ok := ledger.Find(first.ID)
	req.False(ok)

	req.Equal(2, ledger.Len())
}

func TestLedger_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	ledger := NewLedger(5)
	ledger.Append(textMessage("kept"))

	snap := ledger.Snapshot()
	ledger.Append(textMessage("later"))

	req.Len(snap, 1)
	req.Equal("kept", snap[0].Body)
}
