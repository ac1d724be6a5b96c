package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
)

const ponderWire = `{
  "type": "Struct",
  "value": {
    "id": "A.f8d6e0586b0a20c7.Ponder.Snapshot",
    "fields": [
      {"name": "id", "value": {"type": "UInt64", "value": "7"}},
      {"name": "question", "value": {"type": "String", "value": "Will it rain tomorrow in Lisbon?"}},
      {"name": "description", "value": {"type": "String", "value": ""}},
      {"name": "options", "value": {"type": "Array", "value": [
        {"type": "String", "value": "Yes"},
        {"type": "String", "value": "No"}
      ]}},
      {"name": "category", "value": {"type": "String", "value": "Science"}},
      {"name": "creator", "value": {"type": "Address", "value": "0xf8d6e0586b0a20c7"}},
      {"name": "createdAt", "value": {"type": "UInt64", "value": "1700000000"}},
      {"name": "endTime", "value": {"type": "UInt64", "value": "1700086400"}},
      {"name": "minBet", "value": {"type": "UFix64", "value": "0.50000000"}},
      {"name": "maxBet", "value": {"type": "UFix64", "value": "100.00000000"}},
      {"name": "voteCounts", "value": {"type": "Array", "value": [
        {"type": "UInt64", "value": "1"},
        {"type": "UInt64", "value": "0"}
      ]}},
      {"name": "totalPool", "value": {"type": "UFix64", "value": "2.00000000"}},
      {"name": "juiceAmount", "value": {"type": "UFix64", "value": "0.00000000"}},
      {"name": "isJuiced", "value": {"type": "Bool", "value": false}},
      {"name": "resolved", "value": {"type": "Bool", "value": false}},
      {"name": "winningOption", "value": {"type": "UInt8", "value": "0"}}
    ]
  }
}`

func TestDecodePonder(t *testing.T) {
	var v cadenceValue
	require.NoError(t, json.Unmarshal([]byte(ponderWire), &v))

	p, err := decodePonder(v)
	require.NoError(t, err)

	assert.Equal(t, domain.PonderID(7), p.ID)
	assert.Equal(t, "Will it rain tomorrow in Lisbon?", p.Question)
	assert.Equal(t, []string{"Yes", "No"}, p.Options)
	assert.Equal(t, []uint64{1, 0}, p.VoteCounts)
	assert.Equal(t, domain.Category("Science"), p.Category)
	assert.Equal(t, domain.Address("0xf8d6e0586b0a20c7"), p.Creator)
	assert.Equal(t, domain.MustAmount("0.5"), p.MinBet)
	assert.Equal(t, domain.MustAmount("100"), p.MaxBet)
	assert.Equal(t, domain.MustAmount("2"), p.TotalPool)
	assert.False(t, p.IsJuiced)
	assert.False(t, p.Resolved)
}

func TestDecodePonderRejectsMisalignedVoteCounts(t *testing.T) {
	// Two options but three counts must fail at the boundary.
	bad := `{
	  "type": "Struct",
	  "value": {
	    "id": "A.f8d6e0586b0a20c7.Ponder.Snapshot",
	    "fields": [
	      {"name": "id", "value": {"type": "UInt64", "value": "1"}},
	      {"name": "question", "value": {"type": "String", "value": "q"}},
	      {"name": "description", "value": {"type": "String", "value": ""}},
	      {"name": "options", "value": {"type": "Array", "value": [
	        {"type": "String", "value": "A"}, {"type": "String", "value": "B"}
	      ]}},
	      {"name": "category", "value": {"type": "String", "value": "Other"}},
	      {"name": "creator", "value": {"type": "Address", "value": "0xf8d6e0586b0a20c7"}},
	      {"name": "createdAt", "value": {"type": "UInt64", "value": "1"}},
	      {"name": "endTime", "value": {"type": "UInt64", "value": "2"}},
	      {"name": "minBet", "value": {"type": "UFix64", "value": "0.10000000"}},
	      {"name": "maxBet", "value": {"type": "UFix64", "value": "1.00000000"}},
	      {"name": "voteCounts", "value": {"type": "Array", "value": [
	        {"type": "UInt64", "value": "0"},
	        {"type": "UInt64", "value": "0"},
	        {"type": "UInt64", "value": "0"}
	      ]}},
	      {"name": "totalPool", "value": {"type": "UFix64", "value": "0.00000000"}},
	      {"name": "juiceAmount", "value": {"type": "UFix64", "value": "0.00000000"}},
	      {"name": "isJuiced", "value": {"type": "Bool", "value": false}},
	      {"name": "resolved", "value": {"type": "Bool", "value": false}},
	      {"name": "winningOption", "value": {"type": "UInt8", "value": "0"}}
	    ]
	  }
	}`
	var v cadenceValue
	require.NoError(t, json.Unmarshal([]byte(bad), &v))

	_, err := decodePonder(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voteCounts")
}

func TestDecodeOptionalNil(t *testing.T) {
	var v cadenceValue
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Optional","value":null}`), &v))

	_, present, err := v.asOptional()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestDecodeUserStats(t *testing.T) {
	wire := `{
	  "type": "Struct",
	  "value": {
	    "id": "A.f8d6e0586b0a20c7.Ponder.UserStats",
	    "fields": [
	      {"name": "accuracy", "value": {"type": "UFix64", "value": "0.75000000"}},
	      {"name": "totalWinnings", "value": {"type": "UFix64", "value": "12.50000000"}},
	      {"name": "totalVotes", "value": {"type": "UInt64", "value": "20"}},
	      {"name": "totalStaked", "value": {"type": "UFix64", "value": "40.00000000"}},
	      {"name": "correctPredictions", "value": {"type": "UInt64", "value": "15"}}
	    ]
	  }
	}`
	var v cadenceValue
	require.NoError(t, json.Unmarshal([]byte(wire), &v))

	stats, err := decodeUserStats(v)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, stats.Accuracy, 1e-9)
	assert.Equal(t, domain.MustAmount("12.5"), stats.TotalWinnings)
	assert.Equal(t, uint64(20), stats.TotalVotes)
	assert.Equal(t, uint64(15), stats.CorrectPredictions)
}
