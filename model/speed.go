package model

// defaultMaxSpeed holds typical maximum speeds in knots for AIS ship type
// codes that do not fall in a decade-wide range.
var defaultMaxSpeed = map[int]float64{
	30: 11.5, // fishing
	31: 12.1, // towing
	32: 12.1, // towing, long
	33: 11.3, // dredging
	34: 18,   // diving
	35: 30,   // military
	36: 6,    // sailing
	37: 15,   // pleasure
	50: 18.7, // pilot
	51: 30,   // search and rescue
	52: 12.1, // tug
	53: 11.9, // port tender
	54: 18,   // anti-pollution
	55: 20,   // law enforcement
	58: 15.7, // medical
}

// DefaultMaxSpeed returns the typical maximum speed in knots for an AIS ship
// type code. ok is false for codes without a known default.
func DefaultMaxSpeed(shipType int) (speed float64, ok bool) {
	switch {
	case shipType >= 20 && shipType <= 29:
		return 100, true // wing in ground
	case shipType >= 40 && shipType <= 49:
		return 40, true // high speed craft
	case shipType >= 60 && shipType <= 69:
		return 19.5, true // passenger
	case shipType >= 70 && shipType <= 79:
		return 15.1, true // cargo
	case shipType >= 80 && shipType <= 89:
		return 13.6, true // tanker
	}
	speed, ok = defaultMaxSpeed[shipType]
	return speed, ok
}
