package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/flowponder/ponderd/internal/domain"
)

// cadenceValue is the raw wire form of a ledger value. Script results arrive
// as a tree of these; the decode helpers below parse the tree into validated
// domain types so nothing downstream touches untyped data.
type cadenceValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type cadenceField struct {
	Name  string       `json:"name"`
	Value cadenceValue `json:"value"`
}

type cadenceComposite struct {
	ID     string         `json:"id"`
	Fields []cadenceField `json:"fields"`
}

func decodeError(want string, err error) error {
	return domain.NewLedgerError(domain.LedgerQueryFailed, err, "decode %s value", want)
}

func (v cadenceValue) asString() (string, error) {
	if v.Type != "String" {
		return "", decodeError("String", fmt.Errorf("got %s", v.Type))
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return "", decodeError("String", err)
	}
	return s, nil
}

func (v cadenceValue) asBool() (bool, error) {
	if v.Type != "Bool" {
		return false, decodeError("Bool", fmt.Errorf("got %s", v.Type))
	}
	var b bool
	if err := json.Unmarshal(v.Value, &b); err != nil {
		return false, decodeError("Bool", err)
	}
	return b, nil
}

// asUint decodes any of the ledger's unsigned integer types, which are all
// serialized as decimal strings.
func (v cadenceValue) asUint() (uint64, error) {
	switch v.Type {
	case "UInt8", "UInt16", "UInt32", "UInt64":
	default:
		return 0, decodeError("UInt", fmt.Errorf("got %s", v.Type))
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return 0, decodeError(v.Type, err)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, decodeError(v.Type, err)
	}
	return n, nil
}

func (v cadenceValue) asAmount() (domain.Amount, error) {
	if v.Type != "UFix64" {
		return 0, decodeError("UFix64", fmt.Errorf("got %s", v.Type))
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return 0, decodeError("UFix64", err)
	}
	a, err := domain.ParseAmount(s)
	if err != nil {
		return 0, decodeError("UFix64", err)
	}
	return a, nil
}

func (v cadenceValue) asFix64Float() (float64, error) {
	if v.Type != "UFix64" && v.Type != "Fix64" {
		return 0, decodeError("UFix64", fmt.Errorf("got %s", v.Type))
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return 0, decodeError(v.Type, err)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, decodeError(v.Type, err)
	}
	return f, nil
}

func (v cadenceValue) asAddress() (domain.Address, error) {
	if v.Type != "Address" {
		return "", decodeError("Address", fmt.Errorf("got %s", v.Type))
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err != nil {
		return "", decodeError("Address", err)
	}
	addr := domain.Address(s)
	if !addr.Valid() {
		return "", decodeError("Address", fmt.Errorf("malformed address %q", s))
	}
	return addr, nil
}

func (v cadenceValue) asArray() ([]cadenceValue, error) {
	if v.Type != "Array" {
		return nil, decodeError("Array", fmt.Errorf("got %s", v.Type))
	}
	var items []cadenceValue
	if err := json.Unmarshal(v.Value, &items); err != nil {
		return nil, decodeError("Array", err)
	}
	return items, nil
}

// asOptional unwraps an Optional value. The second return is false for nil.
func (v cadenceValue) asOptional() (cadenceValue, bool, error) {
	if v.Type != "Optional" {
		return cadenceValue{}, false, decodeError("Optional", fmt.Errorf("got %s", v.Type))
	}
	if string(v.Value) == "null" {
		return cadenceValue{}, false, nil
	}
	var inner cadenceValue
	if err := json.Unmarshal(v.Value, &inner); err != nil {
		return cadenceValue{}, false, decodeError("Optional", err)
	}
	return inner, true, nil
}

// asFields decodes a composite (Struct/Resource) into a name-to-value map.
func (v cadenceValue) asFields() (map[string]cadenceValue, error) {
	if v.Type != "Struct" && v.Type != "Resource" {
		return nil, decodeError("Struct", fmt.Errorf("got %s", v.Type))
	}
	var comp cadenceComposite
	if err := json.Unmarshal(v.Value, &comp); err != nil {
		return nil, decodeError("Struct", err)
	}
	fields := make(map[string]cadenceValue, len(comp.Fields))
	for _, f := range comp.Fields {
		fields[f.Name] = f.Value
	}
	return fields, nil
}

// fieldSet is a helper over decoded composite fields that records the first
// error and keeps call sites flat.
type fieldSet struct {
	fields map[string]cadenceValue
	err    error
}

func newFieldSet(v cadenceValue) *fieldSet {
	fields, err := v.asFields()
	return &fieldSet{fields: fields, err: err}
}

func (fs *fieldSet) get(name string) (cadenceValue, bool) {
	if fs.err != nil {
		return cadenceValue{}, false
	}
	v, ok := fs.fields[name]
	if !ok {
		fs.err = decodeError("Struct", fmt.Errorf("missing field %q", name))
	}
	return v, ok
}

func (fs *fieldSet) str(name string) string {
	v, ok := fs.get(name)
	if !ok {
		return ""
	}
	s, err := v.asString()
	if err != nil {
		fs.err = err
	}
	return s
}

func (fs *fieldSet) uint(name string) uint64 {
	v, ok := fs.get(name)
	if !ok {
		return 0
	}
	n, err := v.asUint()
	if err != nil {
		fs.err = err
	}
	return n
}

func (fs *fieldSet) amount(name string) domain.Amount {
	v, ok := fs.get(name)
	if !ok {
		return 0
	}
	a, err := v.asAmount()
	if err != nil {
		fs.err = err
	}
	return a
}

func (fs *fieldSet) boolean(name string) bool {
	v, ok := fs.get(name)
	if !ok {
		return false
	}
	b, err := v.asBool()
	if err != nil {
		fs.err = err
	}
	return b
}

func (fs *fieldSet) address(name string) domain.Address {
	v, ok := fs.get(name)
	if !ok {
		return ""
	}
	a, err := v.asAddress()
	if err != nil {
		fs.err = err
	}
	return a
}

// decodePonder parses a Ponder.Snapshot composite and enforces the
// len(voteCounts) == len(options) invariant at the boundary.
func decodePonder(v cadenceValue) (domain.Ponder, error) {
	fs := newFieldSet(v)

	p := domain.Ponder{
		ID:          domain.PonderID(fs.uint("id")),
		Question:    fs.str("question"),
		Description: fs.str("description"),
		Category:    domain.Category(fs.str("category")),
		Creator:     fs.address("creator"),
		CreatedAt:   int64(fs.uint("createdAt")),
		EndTime:     int64(fs.uint("endTime")),
		MinBet:      fs.amount("minBet"),
		MaxBet:      fs.amount("maxBet"),
		TotalPool:   fs.amount("totalPool"),
		JuiceAmount: fs.amount("juiceAmount"),
		IsJuiced:    fs.boolean("isJuiced"),
		Resolved:    fs.boolean("resolved"),
	}
	p.WinningOption = int(fs.uint("winningOption"))

	if optionsVal, ok := fs.get("options"); ok {
		items, err := optionsVal.asArray()
		if err != nil {
			return domain.Ponder{}, err
		}
		p.Options = make([]string, 0, len(items))
		for _, item := range items {
			s, err := item.asString()
			if err != nil {
				return domain.Ponder{}, err
			}
			p.Options = append(p.Options, s)
		}
	}

	if countsVal, ok := fs.get("voteCounts"); ok {
		items, err := countsVal.asArray()
		if err != nil {
			return domain.Ponder{}, err
		}
		p.VoteCounts = make([]uint64, 0, len(items))
		for _, item := range items {
			n, err := item.asUint()
			if err != nil {
				return domain.Ponder{}, err
			}
			p.VoteCounts = append(p.VoteCounts, n)
		}
	}

	if fs.err != nil {
		return domain.Ponder{}, fs.err
	}
	if len(p.VoteCounts) != len(p.Options) {
		return domain.Ponder{}, decodeError("Ponder",
			fmt.Errorf("voteCounts length %d does not match options length %d",
				len(p.VoteCounts), len(p.Options)))
	}
	return p, nil
}

func decodeVote(v cadenceValue) (domain.Vote, error) {
	fs := newFieldSet(v)
	vote := domain.Vote{
		PonderID:   domain.PonderID(fs.uint("ponderId")),
		Option:     int(fs.uint("option")),
		IsFreeVote: fs.boolean("isFreeVote"),
		Amount:     fs.amount("amount"),
		Timestamp:  int64(fs.uint("timestamp")),
		Voter:      fs.address("voter"),
	}
	if fs.err != nil {
		return domain.Vote{}, fs.err
	}
	return vote, nil
}

func decodeUserStats(v cadenceValue) (domain.UserStats, error) {
	fs := newFieldSet(v)
	stats := domain.UserStats{
		TotalWinnings:      fs.amount("totalWinnings"),
		TotalVotes:         fs.uint("totalVotes"),
		TotalStaked:        fs.amount("totalStaked"),
		CorrectPredictions: fs.uint("correctPredictions"),
	}
	if accVal, ok := fs.get("accuracy"); ok {
		acc, err := accVal.asFix64Float()
		if err != nil {
			return domain.UserStats{}, err
		}
		stats.Accuracy = acc
	}
	if fs.err != nil {
		return domain.UserStats{}, fs.err
	}
	return stats, nil
}
