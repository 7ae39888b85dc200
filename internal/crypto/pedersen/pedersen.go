// Package pedersen implements the Stark curve Pedersen hash over the
// 252-bit prime field used by the chain. It is pure math/big; throughput
// is adequate for request-path use (storage address derivation, the
// cairod_pedersenHash RPC helper).
package pedersen

import (
	"fmt"
	"math/big"
	"strings"
)

// prime is the Stark field modulus, 2^251 + 17*2^192 + 1.
var prime, _ = new(big.Int).SetString(
	"3618502788666131213697322783095070105623107215331596699973092056135872020481", 10)

// Curve constants P0..P4. The hash is
//
//	H(a, b) = x(P0 + a_low*P1 + a_high*P2 + b_low*P3 + b_high*P4)
//
// where low is the bottom 248 bits and high the top 4.
var (
	pedersenP0 = affine(
		"2089986280348253421170679821480865132823066470938446095505822317253594081284",
		"1713931329540660377023406109199410414810705867260802078187082345529207694986")
	pedersenP1 = affine(
		"996781205833008774514500082376783249102396023663454813447423147977397232763",
		"1668503676786377725805489344771023921079126552019160156920634619255970485781")
	pedersenP2 = affine(
		"2251563274489750535117886426533222435294046428347329203627021249169616184184",
		"1798716007562728905295480679789526322175868328062420237419143593021674992973")
	pedersenP3 = affine(
		"2138414695194151160943305727036575959195309218611738193261179310511854807447",
		"113410276730064486255102093846540133784865286929052426931474106396135072156")
	pedersenP4 = affine(
		"2379962749567351885752724891227938183011949129833673362440656643086021394946",
		"776496453633298175483985398648758586525933812536653089401905292063708816422")
)

// point is a point on the Stark curve y^2 = x^3 + x + b over the field.
type point struct {
	x, y     *big.Int
	infinity bool
}

func affine(x, y string) *point {
	px, ok := new(big.Int).SetString(x, 10)
	if !ok {
		panic("pedersen: bad x constant")
	}
	py, ok := new(big.Int).SetString(y, 10)
	if !ok {
		panic("pedersen: bad y constant")
	}
	return &point{x: px, y: py}
}

func identity() *point {
	return &point{x: new(big.Int), y: new(big.Int), infinity: true}
}

// double returns 2p. The curve parameter a is 1.
func (p *point) double() *point {
	if p.infinity {
		return p
	}

	// lambda = (3x^2 + 1) / 2y
	lambda := new(big.Int).Mul(p.x, p.x)
	lambda.Mul(lambda, big.NewInt(3))
	lambda.Add(lambda, big.NewInt(1))
	twoY := new(big.Int).Lsh(p.y, 1)
	twoY.ModInverse(twoY, prime)
	lambda.Mul(lambda, twoY)
	lambda.Mod(lambda, prime)

	return chord(lambda, p.x, p.x, p.y)
}

// add returns p + q.
func (p *point) add(q *point) *point {
	if p.infinity {
		return q
	}
	if q.infinity {
		return p
	}
	if p.x.Cmp(q.x) == 0 {
		if p.y.Cmp(q.y) == 0 {
			return p.double()
		}
		return identity()
	}

	// lambda = (y2 - y1) / (x2 - x1)
	lambda := new(big.Int).Sub(q.y, p.y)
	dx := new(big.Int).Sub(q.x, p.x)
	dx.ModInverse(dx.Mod(dx, prime), prime)
	lambda.Mul(lambda, dx)
	lambda.Mod(lambda, prime)

	return chord(lambda, p.x, q.x, p.y)
}

// chord completes an addition: given the slope and the two x coordinates,
// it computes the third intersection mirrored over the x axis.
func chord(lambda, x1, x2, y1 *big.Int) *point {
	x := new(big.Int).Mul(lambda, lambda)
	x.Sub(x, x1)
	x.Sub(x, x2)
	x.Mod(x, prime)

	y := new(big.Int).Sub(x1, x)
	y.Mul(y, lambda)
	y.Sub(y, y1)
	y.Mod(y, prime)

	return &point{x: x, y: y}
}

// multiply returns scalar-multiplication of p by the bits [from, to) of k,
// double-and-add from the high bit down.
func (p *point) multiply(k *big.Int, from, to int) *point {
	product := identity()
	for i := to - 1; i >= from; i-- {
		product = product.double()
		if k.Bit(i) == 1 {
			product = product.add(p)
		}
	}
	return product
}

// Hash computes the Pedersen hash of two field elements. Both inputs must
// lie in [0, prime).
func Hash(a, b *big.Int) (*big.Int, error) {
	if err := checkFelt(a); err != nil {
		return nil, fmt.Errorf("first element: %w", err)
	}
	if err := checkFelt(b); err != nil {
		return nil, fmt.Errorf("second element: %w", err)
	}

	result := pedersenP0
	result = result.add(pedersenP1.multiply(a, 0, 248))
	result = result.add(pedersenP2.multiply(a, 248, 252))
	result = result.add(pedersenP3.multiply(b, 0, 248))
	result = result.add(pedersenP4.multiply(b, 248, 252))

	return result.x, nil
}

func checkFelt(v *big.Int) error {
	if v == nil || v.Sign() < 0 || v.Cmp(prime) >= 0 {
		return fmt.Errorf("value out of field range")
	}
	return nil
}

// ParseFelt parses a 0x-prefixed hex field element.
func ParseFelt(s string) (*big.Int, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("felt %q is missing the 0x prefix", s)
	}
	v, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, fmt.Errorf("felt %q is not valid hex", s)
	}
	if err := checkFelt(v); err != nil {
		return nil, fmt.Errorf("felt %q: %w", s, err)
	}
	return v, nil
}

// FormatFelt renders a field element in the canonical 0x form.
func FormatFelt(v *big.Int) string {
	return "0x" + v.Text(16)
}
