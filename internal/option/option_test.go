package option_test

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/pelletier/go-toml/v2"

	"github.com/rrrmake/rrrmake/internal/option"
)

type inner struct {
	Hello string `toml:"hello"`
}

type rootExplicit struct {
	OptionalField option.ExplicitOption[inner] `toml:"optional_field"`
}

type rootDouble struct {
	OptionalField option.DoubleOption[inner] `toml:"optional_field,omitempty"`
}

func TestExplicitOptionRoundTrip(t *testing.T) {
	none := rootExplicit{OptionalField: option.None[inner]()}
	data, err := toml.Marshal(none)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(data), "optional_field = 'none'\n"))

	var decodedNone rootExplicit
	qt.Assert(t, qt.IsNil(toml.Unmarshal(data, &decodedNone)))
	_, some := decodedNone.OptionalField.Get()
	qt.Assert(t, qt.IsFalse(some))

	some := rootExplicit{OptionalField: option.Some(inner{Hello: "World"})}
	data, err = toml.Marshal(some)
	qt.Assert(t, qt.IsNil(err))

	var decodedSome rootExplicit
	qt.Assert(t, qt.IsNil(toml.Unmarshal(data, &decodedSome)))
	v, ok := decodedSome.OptionalField.Get()
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(v.Hello, "World"))
}

func TestDoubleOptionUnsetOmitsKey(t *testing.T) {
	unset := rootDouble{}
	data, err := toml.Marshal(unset)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(data), ""))

	var decoded rootDouble
	qt.Assert(t, qt.IsNil(toml.Unmarshal(data, &decoded)))
	qt.Assert(t, qt.IsNil(decoded.OptionalField))
}

func TestDoubleOptionExplicitNone(t *testing.T) {
	explicitNone := rootDouble{OptionalField: option.DoubleExplicitNone[inner]()}
	data, err := toml.Marshal(explicitNone)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(data), "optional_field = 'none'\n"))

	resolved, present := option.Resolve(explicitNone.OptionalField)
	qt.Assert(t, qt.IsTrue(present))
	qt.Assert(t, qt.IsNil(resolved))
}

func TestDoubleOptionSome(t *testing.T) {
	some := rootDouble{OptionalField: option.DoubleSome(inner{Hello: "World"})}
	resolved, present := option.Resolve(some.OptionalField)
	qt.Assert(t, qt.IsTrue(present))
	qt.Assert(t, qt.Equals(resolved.Hello, "World"))
}

func TestOr(t *testing.T) {
	fallback := option.DoubleSome(inner{Hello: "fallback"})

	qt.Assert(t, qt.Equals(option.Or[inner](nil, fallback), fallback))

	this := option.DoubleExplicitNone[inner]()
	qt.Assert(t, qt.Equals(option.Or(this, fallback), this))
}
