package pedersen

import (
	"math/big"
	"testing"
)

func feltFromDec(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad decimal %q", s)
	}
	return v
}

func pointFromDec(t *testing.T, x, y string) *point {
	t.Helper()
	return &point{x: feltFromDec(t, x), y: feltFromDec(t, y)}
}

func curveGenerator(t *testing.T) *point {
	return pointFromDec(t,
		"874739451078007766457464989774322083649278607533249481151382481072868806602",
		"152666792071518830868575557812948353041420400780739481342941381225525861407")
}

func assertPointEqual(t *testing.T, got, want *point) {
	t.Helper()
	if got.infinity != want.infinity || got.x.Cmp(want.x) != 0 || got.y.Cmp(want.y) != 0 {
		t.Fatalf("point mismatch:\n got (%s, %s)\nwant (%s, %s)", got.x, got.y, want.x, want.y)
	}
}

func TestCurveDouble(t *testing.T) {
	got := curveGenerator(t).double()
	want := pointFromDec(t,
		"3324833730090626974525872402899302150520188025637965566623476530814354734325",
		"3147007486456030910661996439995670279305852583596209647900952752170983517249")
	assertPointEqual(t, got, want)
}

func TestCurveDoubleAndAdd(t *testing.T) {
	g := curveGenerator(t)
	got := g.double().add(g)
	want := pointFromDec(t,
		"1839793652349538280924927302501143912227271479439798783640887258675143576352",
		"3564972295958783757568195431080951091358810058262272733141798511604612925062")
	assertPointEqual(t, got, want)
}

func TestCurveMultiply(t *testing.T) {
	got := curveGenerator(t).multiply(big.NewInt(3), 0, 252)
	want := pointFromDec(t,
		"1839793652349538280924927302501143912227271479439798783640887258675143576352",
		"3564972295958783757568195431080951091358810058262272733141798511604612925062")
	assertPointEqual(t, got, want)
}

func TestCurveIdentity(t *testing.T) {
	g := curveGenerator(t)
	assertPointEqual(t, identity().add(g), g)
	assertPointEqual(t, g.add(identity()), g)
	if got := g.multiply(big.NewInt(0), 0, 252); !got.infinity {
		t.Fatal("0*G should be the identity")
	}
}

func TestHashVector(t *testing.T) {
	// Test vector from starkware-libs/crypto-cpp pedersen_hash_test.cc.
	a := feltFromDec(t, "1740729136829561885683894917751815192814966525555656371386868611731128807883")
	b := feltFromDec(t, "919869093895560023824014392670608914007817594969197822578496829435657368346")
	want := feltFromDec(t, "1382171651951541052082654537810074813456022260470662576358627909045455537762")

	got, err := Hash(a, b)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Fatalf("Hash = %s, want %s", got, want)
	}
}

func TestHashRejectsOutOfRange(t *testing.T) {
	ok := big.NewInt(1)

	if _, err := Hash(new(big.Int).Neg(ok), ok); err == nil {
		t.Error("negative element accepted")
	}
	if _, err := Hash(prime, ok); err == nil {
		t.Error("element >= prime accepted")
	}
	if _, err := Hash(nil, ok); err == nil {
		t.Error("nil element accepted")
	}
}

func TestParseFelt(t *testing.T) {
	tests := []struct {
		in      string
		wantDec string
		wantErr bool
	}{
		{in: "0x1", wantDec: "1"},
		{in: "0xdeadbeef", wantDec: "3735928559"},
		{in: "0X2A", wantDec: "42"},
		{in: "1234", wantErr: true},
		{in: "0xzz", wantErr: true},
		{in: "0x" + prime.Text(16), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFelt(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFelt(%q) accepted", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFelt(%q): %v", tt.in, err)
			}
			if got.String() != tt.wantDec {
				t.Errorf("ParseFelt(%q) = %s, want %s", tt.in, got, tt.wantDec)
			}
		})
	}
}

func TestFormatFeltRoundTrip(t *testing.T) {
	v := feltFromDec(t, "3735928559")
	if got := FormatFelt(v); got != "0xdeadbeef" {
		t.Fatalf("FormatFelt = %q", got)
	}
}
