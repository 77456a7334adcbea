package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		key     string
		value   string
		wantErr bool
	}{
		{name: "canonical", raw: "MAX_TRANSACTION_VALUE:50000", key: "MAX_TRANSACTION_VALUE", value: "50000"},
		{name: "normalizes key", raw: " max_transaction_value : 10 ", key: "MAX_TRANSACTION_VALUE", value: "10"},
		{name: "value keeps later colons", raw: "WINDOW:09:00-17:00", key: "WINDOW", value: "09:00-17:00"},
		{name: "missing separator", raw: "MAX_TRANSACTION_VALUE", key: "MAX_TRANSACTION_VALUE", wantErr: true},
		{name: "empty key", raw: ":10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedCondition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, c.Key)
			assert.Equal(t, tt.value, c.Value)
		})
	}
}

func TestCheckMaxTransactionValue(t *testing.T) {
	v := DefaultVocabulary()
	conds := []string{"MAX_TRANSACTION_VALUE:50000"}

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "below ceiling", value: "49999.99", want: true},
		{name: "at ceiling", value: "50000", want: true},
		{name: "at ceiling with fraction", value: "50000.00", want: true},
		{name: "above ceiling", value: "50000.01", want: false},
		{name: "far above", value: "1000000", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Check(conds, Params{"transaction_value": tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Satisfied)
			if !tt.want {
				require.Len(t, res.Failed, 1)
				assert.Equal(t, MaxTransactionValue, res.Failed[0].Key)
			}
		})
	}
}

func TestCheckUnknownKeysIgnored(t *testing.T) {
	res, err := DefaultVocabulary().Check([]string{"FUTURE_KEY:anything", "NO_SEPARATOR_FLAG"}, Params{"transaction_value": "1"})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
	assert.Len(t, res.Ignored, 2)
}

func TestCheckUndeclaredParameterImposesNothing(t *testing.T) {
	res, err := DefaultVocabulary().Check([]string{"MAX_TRANSACTION_VALUE:100"}, Params{})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
	assert.Len(t, res.Unconstrained, 1)

	res, err = DefaultVocabulary().Check([]string{"MAX_TRANSACTION_VALUE:100"}, Params{}, "currency")
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	res, err = DefaultVocabulary().Check(nil, Params{"transaction_value": "99999999"})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestCheckDeclaredParameterOmittedIsUnmet(t *testing.T) {
	conds := []string{"MAX_TRANSACTION_VALUE:50000"}

	res, err := DefaultVocabulary().Check(conds, nil, "transaction_value")
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, MaxTransactionValue, res.Missing[0].Key)
	assert.Empty(t, res.Failed)

	res, err = DefaultVocabulary().Check(conds, Params{"transaction_value": "50000"}, "transaction_value")
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	// No condition on the parameter means nothing to enforce.
	res, err = DefaultVocabulary().Check(nil, nil, "transaction_value")
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestCheckMalformedFailsClosed(t *testing.T) {
	v := DefaultVocabulary()

	_, err := v.Check([]string{"MAX_TRANSACTION_VALUE:fifty"}, Params{"transaction_value": "1"})
	assert.ErrorIs(t, err, ErrMalformedCondition)

	_, err = v.Check([]string{"MAX_TRANSACTION_VALUE:"}, Params{"transaction_value": "1"})
	assert.ErrorIs(t, err, ErrMalformedCondition)

	_, err = v.Check([]string{"MAX_TRANSACTION_VALUE"}, Params{"transaction_value": "1"})
	assert.ErrorIs(t, err, ErrMalformedCondition)

	for _, bad := range []string{"1e9", "1/2", "0x10", "", "1,000", ".5", "5.", "-"} {
		_, err = v.Check([]string{"MAX_TRANSACTION_VALUE:100"}, Params{"transaction_value": bad})
		assert.ErrorIs(t, err, ErrMalformedParameter, "value %q", bad)
	}
}

func TestCheckAllRecognizedMustPass(t *testing.T) {
	v, err := NewVocabulary(
		Rule{Key: MaxTransactionValue, Parameter: "transaction_value", Comparator: CompareLTE},
		Rule{Key: "ALLOWED_CURRENCY", Parameter: "currency", Comparator: CompareIn},
		Rule{Key: "MIN_BALANCE", Parameter: "balance", Comparator: CompareGTE},
	)
	require.NoError(t, err)

	conds := []string{"MAX_TRANSACTION_VALUE:500", "ALLOWED_CURRENCY:USD, EUR", "MIN_BALANCE:-10"}

	res, err := v.Check(conds, Params{"transaction_value": "400", "currency": "EUR", "balance": "0"})
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	res, err = v.Check(conds, Params{"transaction_value": "400", "currency": "GBP", "balance": "0"})
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "ALLOWED_CURRENCY", res.Failed[0].Key)

	res, err = v.Check(conds, Params{"transaction_value": "400", "currency": "USD", "balance": "-10.5"})
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
}

func TestNewVocabularyValidation(t *testing.T) {
	_, err := NewVocabulary(Rule{Key: "X", Parameter: "x", Comparator: "approx"})
	assert.ErrorIs(t, err, ErrUnknownComparator)

	_, err = NewVocabulary(Rule{Key: "X", Comparator: CompareEQ})
	assert.Error(t, err)

	_, err = NewVocabulary(
		Rule{Key: "x", Parameter: "x", Comparator: CompareEQ},
		Rule{Key: "X", Parameter: "y", Comparator: CompareEQ},
	)
	assert.Error(t, err)

	v, err := NewVocabulary(Rule{Key: " region ", Parameter: "region", Comparator: "EQ"})
	require.NoError(t, err)
	assert.True(t, v.Recognizes("REGION"))
	assert.Equal(t, []string{"REGION"}, v.Keys())
}
