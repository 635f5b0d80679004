package clock

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// Clock abstrae la hora actual para poder fijarla en tests.
type Clock interface {
	Now() time.Time
}

// System es el reloj real, siempre en UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed devuelve siempre el mismo instante.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f).UTC() }

// Interval es la cadencia de decisión y el tamaño de bucket de los mercados.
type Interval struct {
	Length time.Duration
}

// NewInterval crea un Interval de n minutos.
func NewInterval(minutes int) (Interval, error) {
	if minutes <= 0 {
		return Interval{}, fmt.Errorf("clock.NewInterval: interval must be positive, got %d", minutes)
	}
	return Interval{Length: time.Duration(minutes) * time.Minute}, nil
}

func (iv Interval) seconds() int64 {
	return int64(iv.Length / time.Second)
}

// IsDecisionTick devuelve true durante todo el primer minuto de cada bucket.
// Se calcula sobre el minuto epoch, así que para intervalos que dividen la hora
// coincide con minute % n == 0.
func (iv Interval) IsDecisionTick(now time.Time) bool {
	minutes := int64(iv.Length / time.Minute)
	if minutes <= 0 {
		return false
	}
	epochMinute := floorDiv(now.Unix(), 60)
	return epochMinute%minutes == 0
}

// BucketFor devuelve el bucket que contiene now desplazado `offset` buckets
// hacia atrás (0 = actual, 1 = anterior, ...). Aritmética entera pura.
func (iv Interval) BucketFor(now time.Time, offset int) domain.Bucket {
	size := iv.seconds()
	start := floorDiv(now.Unix(), size) * size
	return domain.Bucket(start - int64(offset)*size)
}

// Next devuelve el inicio del siguiente bucket.
func (iv Interval) Next(now time.Time) time.Time {
	return iv.BucketFor(now, 0).Start().Add(iv.Length)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
