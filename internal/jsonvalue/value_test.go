package jsonvalue_test

import (
	"testing"

	"github.com/sanix-darker/loadgun/internal/jsonvalue"
	"github.com/stretchr/testify/assert"
)

func TestSetPath_CreatesIntermediateObjects(t *testing.T) {
	env := jsonvalue.NewObject()
	jsonvalue.SetPath(env, "response.headers.content-type", "application/json")

	resp, ok := jsonvalue.AsObject(env["response"])
	assert.True(t, ok)
	headers, ok := jsonvalue.AsObject(resp["headers"])
	assert.True(t, ok)
	assert.Equal(t, "application/json", headers["content-type"])
}

func TestSetPath_OverwritesExistingLeaf(t *testing.T) {
	env := jsonvalue.NewObject()
	jsonvalue.SetPath(env, "stats.rtt", float64(1))
	jsonvalue.SetPath(env, "stats.rtt", float64(2))
	assert.Equal(t, float64(2), env["stats"].(jsonvalue.Object)["rtt"])
}

func TestParseJSON_ValidAndInvalid(t *testing.T) {
	v, ok := jsonvalue.ParseJSON([]byte(`{"a":1}`))
	assert.True(t, ok)
	obj, _ := jsonvalue.AsObject(v)
	assert.Equal(t, float64(1), obj["a"])

	_, ok = jsonvalue.ParseJSON([]byte(`not json`))
	assert.False(t, ok)
}

func TestParseScalar_CoercesTypes(t *testing.T) {
	assert.Equal(t, nil, jsonvalue.ParseScalar("null"))
	assert.Equal(t, true, jsonvalue.ParseScalar("true"))
	assert.Equal(t, false, jsonvalue.ParseScalar("false"))
	assert.Equal(t, float64(42), jsonvalue.ParseScalar("42"))
	assert.Equal(t, "hello", jsonvalue.ParseScalar("hello"))
}

func TestToDisplayString_StringsUnquotedOthersJSON(t *testing.T) {
	assert.Equal(t, "hello", jsonvalue.ToDisplayString("hello"))
	assert.Equal(t, "42", jsonvalue.ToDisplayString(float64(42)))
	assert.Equal(t, `{"a":1}`, jsonvalue.ToDisplayString(jsonvalue.Object{"a": float64(1)}))
}

func TestClone_IsShallowAndIndependent(t *testing.T) {
	orig := jsonvalue.Object{"a": float64(1)}
	clone := jsonvalue.Clone(orig)
	clone["a"] = float64(2)
	assert.Equal(t, float64(1), orig["a"])
}
