package selector

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
)

// GenerateBehaviorSamples produces a balanced synthetic session dataset:
// half human-paced sessions, half rapid low-interaction ones. Derived rates
// are computed from the raw counters the same way the telemetry collector
// computes them.
func GenerateBehaviorSamples(n int, seed int64) []BehaviorSample {
	rng := rand.New(rand.NewSource(seed))
	humans := n / 2
	samples := make([]BehaviorSample, 0, n)

	for i := 0; i < humans; i++ {
		timeOnPage := uniform(rng, 30, 300)
		mouseMoves := math.Floor(uniform(rng, 20, 200))
		keyPresses := math.Floor(uniform(rng, 5, 50))
		samples = append(samples, BehaviorSample{
			Snapshot: sessionSnapshot(mouseMoves, keyPresses, timeOnPage, uniform(rng, 0.1, 0.4)),
			IsHuman:  true,
		})
	}
	for i := humans; i < n; i++ {
		timeOnPage := uniform(rng, 2, 10)
		mouseMoves := math.Floor(uniform(rng, 0, 5))
		keyPresses := math.Floor(uniform(rng, 0, 2))
		samples = append(samples, BehaviorSample{
			Snapshot: sessionSnapshot(mouseMoves, keyPresses, timeOnPage, uniform(rng, 0.6, 0.9)),
			IsHuman:  false,
		})
	}
	return samples
}

func sessionSnapshot(mouseMoves, keyPresses, timeOnPage, idleRatio float64) behavior.Snapshot {
	return behavior.Snapshot{
		MouseMoveCount:     mouseMoves,
		KeyPressCount:      keyPresses,
		TimeOnPageSeconds:  timeOnPage,
		MouseMoveRate:      mouseMoves / timeOnPage,
		KeyPressRate:       keyPresses / timeOnPage,
		InteractionBalance: math.Abs(mouseMoves-keyPresses) / (mouseMoves + keyPresses + 1),
		InteractionScore:   math.Min(1, (mouseMoves+keyPresses)/(timeOnPage*2)),
		IdleRatio:          idleRatio,
	}
}

// GenerateClinicRecords produces a synthetic registration dataset for
// bootstrap training when no labeled outcomes exist yet. Roughly half the
// profiles look established and documented, the rest are thin: no license
// or website, newly founded, single practitioner. Labels are left empty so
// the configured labeler assigns them.
func GenerateClinicRecords(n int, seed int64) []Record {
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().Year()
	records := make([]Record, 0, n)

	specialties := []string{"cardiology", "pediatrics", "dermatology", "orthopedics", "general practice"}
	states := []string{"CA", "TX", "NY", "FL", "WA", "IL"}

	for i := 0; i < n; i++ {
		established := rng.Float64() < 0.5
		p := &clinic.Profile{
			Name:    fmt.Sprintf("Clinic %04d", i),
			Email:   fmt.Sprintf("contact%d@clinic%04d.example.com", i, i),
			Phone:   fmt.Sprintf("+1415555%04d", rng.Intn(10000)),
			City:    "Springfield",
			State:   states[rng.Intn(len(states))],
			ZipCode: fmt.Sprintf("%05d", 10000+rng.Intn(89999)),
		}

		if established {
			p.Website = fmt.Sprintf("https://clinic%04d.example.com", i)
			p.LicenseNumber = fmt.Sprintf("LIC%06d", 100000+rng.Intn(899999))
			p.Accreditation = "Joint Commission"
			p.TaxID = fmt.Sprintf("%09d", 100000000+rng.Intn(899999999))
			p.YearEstablished = now - (3 + rng.Intn(25))
			p.NumberOfDoctors = 2 + rng.Intn(10)
			p.NumberOfStaff = p.NumberOfDoctors * (2 + rng.Intn(3))
			p.Specialties = pick(rng, specialties, 1+rng.Intn(3))
			p.Description = "Full service medical clinic providing professional healthcare and treatment for patients in the community."
		} else {
			p.YearEstablished = now - rng.Intn(2)
			p.NumberOfDoctors = 1
			p.NumberOfStaff = rng.Intn(2)
			if rng.Float64() < 0.3 {
				// a thin profile sometimes still carries a malformed license
				p.LicenseNumber = "abc"
			}
		}

		records = append(records, Record{Profile: p})
	}
	return records
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func pick(rng *rand.Rand, pool []string, k int) []string {
	idx := rng.Perm(len(pool))
	if k > len(pool) {
		k = len(pool)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = pool[idx[i]]
	}
	return out
}
