package model

// Merge combines the stored snapshot t with the newer snapshot n and returns
// a fresh snapshot. Neither input is modified.
//
// A position update takes every movement field from n. A static-only update
// takes static fields from n, falling back to t only for class B vessels,
// which split their static data over several messages. The field group a
// report does not carry is left empty; see MergeRetaining.
func (t *VesselTarget) Merge(n *VesselTarget) *VesselTarget {
	return t.merge(n, false)
}

// MergeRetaining behaves like Merge but carries the untouched field group
// over from t, so a static-only report does not blank the position.
func (t *VesselTarget) MergeRetaining(n *VesselTarget) *VesselTarget {
	return t.merge(n, true)
}

func (t *VesselTarget) merge(n *VesselTarget, retain bool) *VesselTarget {
	posUpdate := n.LastPosReport != nil
	classB := n.TargetType == TypeB

	m := &VesselTarget{
		Target: Target{
			TargetType:    n.TargetType,
			MMSI:          n.MMSI,
			Country:       n.Country,
			LastReport:    n.LastReport,
			SourceType:    n.SourceType,
			SourceCountry: n.SourceCountry,
			SourceRegion:  n.SourceRegion,
		},
		LastPosReport:    firstNonNil(n.LastPosReport, t.LastPosReport),
		LastStaticReport: firstNonNil(n.LastStaticReport, t.LastStaticReport),
	}
	if m.TargetType == TypeUnknown {
		m.TargetType = t.TargetType
	}
	if m.Country == "" {
		m.Country = t.Country
	}

	if posUpdate {
		m.copyMovement(n)
		if retain {
			m.copyStatic(t)
		}
		return m
	}

	m.Name = pick(n.Name, t.Name, classB)
	m.Callsign = pick(n.Callsign, t.Callsign, classB)
	m.Length = pick(n.Length, t.Length, classB)
	m.Width = pick(n.Width, t.Width, classB)
	m.IMONo = pick(n.IMONo, t.IMONo, classB)
	m.Destination = pick(n.Destination, t.Destination, classB)
	m.Draught = pick(n.Draught, t.Draught, classB)
	m.ETA = pick(n.ETA, t.ETA, classB)
	m.VesselType = pick(n.VesselType, t.VesselType, classB)
	m.VesselCargo = pick(n.VesselCargo, t.VesselCargo, classB)
	m.ShipType = pick(n.ShipType, t.ShipType, classB)
	if retain {
		m.copyMovement(t)
	}
	return m
}

func (t *VesselTarget) copyMovement(src *VesselTarget) {
	t.Lat = src.Lat
	t.Lon = src.Lon
	t.Cog = src.Cog
	t.Sog = src.Sog
	t.Heading = src.Heading
	t.Rot = src.Rot
	t.NavStatus = src.NavStatus
	t.Moored = src.Moored
}

func (t *VesselTarget) copyStatic(src *VesselTarget) {
	t.Name = src.Name
	t.Callsign = src.Callsign
	t.Length = src.Length
	t.Width = src.Width
	t.IMONo = src.IMONo
	t.Destination = src.Destination
	t.Draught = src.Draught
	t.ETA = src.ETA
	t.VesselType = src.VesselType
	t.VesselCargo = src.VesselCargo
	t.ShipType = src.ShipType
}

// pick returns cur when set, otherwise prev if fallback is allowed.
func pick[T any](cur, prev *T, fallback bool) *T {
	if cur != nil {
		return cur
	}
	if fallback {
		return prev
	}
	return nil
}

func firstNonNil[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}
