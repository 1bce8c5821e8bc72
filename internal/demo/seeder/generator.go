// Package seeder fills the sample building tables with deterministic
// occupancy, CO2, and temperature readings for local demos.
package seeder

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Room struct {
	GeometryID string
	RoomName   string
	Floor      int
	Area       float64
}

type Reading struct {
	GeometryID string
	MetricName string
	Value      float64
	StartTime  time.Time
}

var roomNames = []string{
	"Lobby", "Cafeteria", "Auditorium", "Library", "Gym",
	"Workshop", "Studio", "Lab", "Atrium", "Terrace",
}

var metricNames = []string{"occupancy", "co2_ppm", "temperature_c"}

type Generator struct {
	rnd   *rand.Rand
	rooms []Room
}

func NewGenerator(seed int64, roomCount int) *Generator {
	if roomCount <= 0 {
		roomCount = len(roomNames)
	}

	rnd := rand.New(rand.NewSource(seed))
	rooms := make([]Room, 0, roomCount)
	for i := 0; i < roomCount; i++ {
		rooms = append(rooms, Room{
			GeometryID: fmt.Sprintf("room-%03d", i+1),
			RoomName:   roomNames[i%len(roomNames)],
			Floor:      i/len(roomNames) + 1,
			Area:       round2(20 + rnd.Float64()*180),
		})
	}
	return &Generator{rnd: rnd, rooms: rooms}
}

func (g *Generator) Rooms() []Room {
	rooms := make([]Room, len(g.rooms))
	copy(rooms, g.rooms)
	return rooms
}

// ReadingsAt produces one reading per room and metric for the given
// timestamp. Occupancy follows a workday curve that peaks around 13:00,
// CO2 tracks occupancy, and temperature drifts within a comfort band.
func (g *Generator) ReadingsAt(at time.Time) []Reading {
	at = at.UTC().Truncate(time.Minute)
	readings := make([]Reading, 0, len(g.rooms)*len(metricNames))

	for _, room := range g.rooms {
		occupancy := g.occupancyFor(room, at)
		readings = append(readings,
			Reading{room.GeometryID, "occupancy", occupancy, at},
			Reading{room.GeometryID, "co2_ppm", round2(420 + occupancy*12 + g.rnd.Float64()*40), at},
			Reading{room.GeometryID, "temperature_c", round2(20.5 + occupancy*0.04 + g.rnd.Float64()*1.5), at},
		)
	}
	return readings
}

func (g *Generator) occupancyFor(room Room, at time.Time) float64 {
	capacity := math.Max(room.Area/4, 2)

	hour := float64(at.Hour()) + float64(at.Minute())/60
	curve := 0.0
	if hour >= 7 && hour <= 20 {
		curve = math.Sin((hour - 7) / 13 * math.Pi)
	}
	if weekday := at.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
		curve *= 0.2
	}

	value := capacity*curve + g.rnd.Float64()*3
	return math.Max(math.Round(value), 0)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
