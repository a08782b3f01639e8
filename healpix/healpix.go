// Package healpix is a grid engine for the nested HEALPix grid. Importing it
// registers the engine for the HEALPIX grid system:
//
//	import _ "github.com/qri-io/dggs-go/healpix"
//
// A zone packs the refinement level into the top byte and the nested pixel
// number into the low bits. Textual identifiers are "<level>-<pixel in hex>".
package healpix

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/qri-io/dggs-go"
)

// MaxLevel is the finest refinement level, nside = 2^MaxLevel
const MaxLevel = 24

const levelShift = 56

var (
	ErrInvalidLevel   = errors.New("healpix: level out of range")
	ErrInvalidZone    = errors.New("healpix: invalid zone")
	ErrInvalidTextID  = errors.New("healpix: invalid text identifier")
	ErrInvalidPoint   = errors.New("healpix: invalid point")
	ErrUnsupportedCRS = errors.New("healpix: unsupported reference system")
)

func init() {
	dggs.RegisterEngine(dggs.GridHEALPix, func() (dggs.Grid, error) {
		return New(), nil
	})
}

const (
	halfPi   = math.Pi / 2
	twoThird = 2.0 / 3.0
)

// face layout: ring number of the face centre in units of nside, and the
// longitude of the face centre in units of pi/4
var (
	jrll = [12]int{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// Grid is the HEALPix engine. It holds no state and is safe for concurrent use.
type Grid struct{}

var _ dggs.ConcurrentGrid = (*Grid)(nil)

func New() *Grid { return &Grid{} }

func (*Grid) ConcurrentSafe() bool { return true }

// Npix is the number of cells at level
func Npix(level int) uint64 {
	return 12 << (2 * uint(level))
}

// NewZone packs a level and nested pixel number into a zone
func NewZone(level int, pixel uint64) (dggs.Zone, error) {
	if level < 0 || level > MaxLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if pixel >= Npix(level) {
		return 0, fmt.Errorf("%w: pixel %d at level %d", ErrInvalidZone, pixel, level)
	}
	return uint64(level)<<levelShift | pixel, nil
}

// SplitZone unpacks a zone into its level and nested pixel number
func SplitZone(z dggs.Zone) (level int, pixel uint64, err error) {
	level = int(z >> levelShift)
	pixel = z & (1<<levelShift - 1)
	if level > MaxLevel || pixel >= Npix(level) {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidZone, z)
	}
	return level, pixel, nil
}

func (g *Grid) ZoneWGS84Centroid(zone dggs.Zone) (orb.Point, error) {
	level, pixel, err := SplitZone(zone)
	if err != nil {
		return orb.Point{}, err
	}
	ix, iy, face := nest2xyf(level, pixel)
	nside := float64(uint64(1) << uint(level))
	return faceToLonLat((float64(ix)+0.5)/nside, (float64(iy)+0.5)/nside, face), nil
}

// ZoneRefinedWGS84Vertices returns the open boundary ring of zone, starting at
// the northern corner and running counterclockwise. Each edge carries
// edgeRefinement extra points. Longitudes are unwrapped around the centroid so
// rings crossing the antimeridian stay contiguous.
func (g *Grid) ZoneRefinedWGS84Vertices(zone dggs.Zone, edgeRefinement int) ([]orb.Point, error) {
	level, pixel, err := SplitZone(zone)
	if err != nil {
		return nil, err
	}
	if edgeRefinement < 0 {
		return nil, fmt.Errorf("healpix: negative edge refinement %d", edgeRefinement)
	}

	ix, iy, face := nest2xyf(level, pixel)
	nside := float64(uint64(1) << uint(level))
	xc, yc := (float64(ix)+0.5)/nside, (float64(iy)+0.5)/nside
	dc := 0.5 / nside
	step := edgeRefinement + 1
	d := 1 / (float64(step) * nside)
	center := faceToLonLat(xc, yc, face)

	out := make([]orb.Point, 4*step)
	for i := 0; i < step; i++ {
		fi := float64(i)
		out[i] = faceToLonLat(xc+dc-fi*d, yc+dc, face)
		out[i+step] = faceToLonLat(xc-dc, yc+dc-fi*d, face)
		out[i+2*step] = faceToLonLat(xc-dc+fi*d, yc-dc, face)
		out[i+3*step] = faceToLonLat(xc+dc, yc-dc+fi*d, face)
	}
	for i, p := range out {
		out[i] = unwrap(p, center.Lon())
	}
	return out, nil
}

func (g *Grid) ZoneFromCRSCentroid(level int, crs dggs.CRS, centroid orb.Point) (dggs.Zone, error) {
	if crs != dggs.CRS84 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCRS, crs)
	}
	if level < 0 || level > MaxLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	lon, lat := centroid.Lon(), centroid.Lat()
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, fmt.Errorf("%w: (%v, %v)", ErrInvalidPoint, lon, lat)
	}

	pixel := lonLatToNest(level, lon, lat)
	return uint64(level)<<levelShift | pixel, nil
}

func (g *Grid) ZoneTextID(zone dggs.Zone) (string, error) {
	level, pixel, err := SplitZone(zone)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(level) + "-" + strings.ToUpper(strconv.FormatUint(pixel, 16)), nil
}

func (g *Grid) ZoneFromTextID(id string) (dggs.Zone, error) {
	ls, ps, ok := strings.Cut(id, "-")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTextID, id)
	}
	level, err := strconv.Atoi(ls)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTextID, id)
	}
	pixel, err := strconv.ParseUint(ps, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTextID, id)
	}
	return NewZone(level, pixel)
}

// lonLatToNest finds the nested pixel containing (lon, lat) in degrees
func lonLatToNest(level int, lon, lat float64) uint64 {
	nside := int64(1) << uint(level)
	latRad := lat * math.Pi / 180
	z := math.Sin(latRad)
	za := math.Abs(z)
	tt := fmodulo(lon*math.Pi/180/halfPi, 4)

	var ix, iy int64
	var face int
	if za <= twoThird {
		temp1 := float64(nside) * (0.5 + tt)
		temp2 := float64(nside) * z * 0.75
		jp := int64(temp1 - temp2) // ascending edge line
		jm := int64(temp1 + temp2) // descending edge line
		ifp := jp >> uint(level)
		ifm := jm >> uint(level)
		switch {
		case ifp == ifm:
			face = int(ifp | 4)
		case ifp < ifm:
			face = int(ifp)
		default:
			face = int(ifm + 8)
		}
		ix = jm & (nside - 1)
		iy = nside - (jp & (nside - 1)) - 1
	} else {
		ntt := min(3, int(tt))
		tp := tt - float64(ntt)
		// nside*sqrt(3*(1-za)) written with cos(lat) to keep precision near
		// the poles
		tmp := float64(nside) * math.Cos(latRad) / math.Sqrt((1+za)/3)
		jp := min(int64(tp*tmp), nside-1)
		jm := min(int64((1-tp)*tmp), nside-1)
		if z >= 0 {
			face, ix, iy = ntt, nside-jm-1, nside-jp-1
		} else {
			face, ix, iy = ntt+8, jp, jm
		}
	}
	return xyf2nest(level, uint64(ix), uint64(iy), face)
}

// faceToLonLat maps face coordinates x, y in [0, 1] to (lon, lat) degrees
func faceToLonLat(x, y float64, face int) orb.Point {
	jr := float64(jrll[face]) - x - y
	var nr, z, sth float64
	switch {
	case jr < 1:
		nr = jr
		tmp := nr * nr / 3
		z = 1 - tmp
		sth = math.Sqrt(tmp * (2 - tmp))
	case jr > 3:
		nr = 4 - jr
		tmp := nr * nr / 3
		z = tmp - 1
		sth = math.Sqrt(tmp * (2 - tmp))
	default:
		nr = 1
		z = (2 - jr) * 2 / 3
		sth = math.Sqrt((1 - z) * (1 + z))
	}

	tmp := float64(jpll[face])*nr + x - y
	if tmp < 0 {
		tmp += 8
	}
	if tmp >= 8 {
		tmp -= 8
	}
	phi := 0.0
	if nr >= 1e-15 {
		phi = 0.5 * halfPi * tmp / nr
	}

	lon := phi * 180 / math.Pi
	if lon > 180 {
		lon -= 360
	}
	lat := math.Atan2(z, sth) * 180 / math.Pi
	return orb.Point{lon, lat}
}

// unwrap shifts p by whole turns so its longitude lies within 180 degrees of
// ref. Poles take the reference longitude.
func unwrap(p orb.Point, ref float64) orb.Point {
	if math.Abs(p.Lat()) >= 90-1e-12 {
		return orb.Point{ref, p.Lat()}
	}
	lon := p.Lon()
	for lon-ref > 180 {
		lon -= 360
	}
	for ref-lon > 180 {
		lon += 360
	}
	return orb.Point{lon, p.Lat()}
}

func fmodulo(v, m float64) float64 {
	r := math.Mod(v, m)
	if r < 0 {
		r += m
		if r >= m {
			return 0
		}
	}
	return r
}

func xyf2nest(level int, ix, iy uint64, face int) uint64 {
	return uint64(face)<<(2*uint(level)) | spread(ix) | spread(iy)<<1
}

func nest2xyf(level int, pixel uint64) (ix, iy uint64, face int) {
	shift := 2 * uint(level)
	face = int(pixel >> shift)
	sub := pixel & (1<<shift - 1)
	return compact(sub), compact(sub >> 1), face
}

// spread interleaves the low 32 bits of v with zeros
func spread(v uint64) uint64 {
	v &= 0xFFFFFFFF
	v = (v | v<<16) & 0x0000FFFF0000FFFF
	v = (v | v<<8) & 0x00FF00FF00FF00FF
	v = (v | v<<4) & 0x0F0F0F0F0F0F0F0F
	v = (v | v<<2) & 0x3333333333333333
	v = (v | v<<1) & 0x5555555555555555
	return v
}

// compact is the inverse of spread
func compact(v uint64) uint64 {
	v &= 0x5555555555555555
	v = (v | v>>1) & 0x3333333333333333
	v = (v | v>>2) & 0x0F0F0F0F0F0F0F0F
	v = (v | v>>4) & 0x00FF00FF00FF00FF
	v = (v | v>>8) & 0x0000FFFF0000FFFF
	v = (v | v>>16) & 0x00000000FFFFFFFF
	return v
}
