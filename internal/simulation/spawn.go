package simulation

import (
	log "github.com/sirupsen/logrus"
)

// spawn offers every spawn point one new vehicle. Occupied points are
// skipped; if none accepts a vehicle the city halts.
func (c *City) spawn() {
	placed := 0
	for _, p := range c.spawnPoints {
		if _, taken := c.occupancy[p]; taken {
			c.log.WithFields(log.Fields{"tick": c.tick, "spawn_point": p.String()}).Debug("Spawn point blocked")
			continue
		}

		dest := c.destinations[c.rng.IntN(len(c.destinations))]
		v := newVehicle(c.nextID, p, dest, c.canonical.Clone(), c.drawPatience(), c.tick)
		if err := v.plan(); err != nil {
			c.log.WithFields(log.Fields{
				"vehicle_id": v.ID,
				"from":       p.String(),
				"to":         dest.String(),
			}).WithError(err).Warn("No route for new vehicle")
		}

		c.nextID++
		c.vehicles[v.ID] = v
		c.occupancy[p] = v.ID
		c.active++
		c.totalSpawned++
		placed++
	}

	if placed == 0 {
		c.halted = true
		c.log.WithFields(log.Fields{
			"tick":    c.tick,
			"active":  c.active,
			"arrived": c.arrived,
		}).Warn("Every spawn point is blocked, simulation halted")
	}
}
