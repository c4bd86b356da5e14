/*
Package game
File: economy.go
Description:
    Handles the non-combat nodes of a voyage.
    This includes:
    1. Port services (repairs, provisions, crew) and the port's weapon stock.
    2. Treasure rewards (relic or gold).
    3. Temple blessings (sight, crew recovery).
    4. Unknown nodes, which reveal themselves as a treasure or a temple.
*/

package game

import (
	"errors"
	"fmt"
)

// Port actions. Treasure, temple and unknown nodes ignore the action.
const (
	ActionRepair     = "repair"
	ActionBuyFood    = "buy_food"
	ActionHireCrew   = "hire_crew"
	ActionBuyWeapon  = "buy_weapon"
	ActionSellWeapon = "sell_weapon"
	ActionLeave      = "leave"
)

var (
	ErrInsufficientFunds = errors.New("not enough money")
	ErrUnknownAction     = errors.New("unknown action")
)

// EventRequest is one player decision at a non-combat node.
type EventRequest struct {
	Action   string `json:"action"`
	Amount   int    `json:"amount,omitempty"`    // Hull points, food bundles or crew
	WeaponID string `json:"weapon_id,omitempty"` // Stock weapon to buy or owned weapon to sell
}

// EventOutcome reports what an event did to the player.
type EventOutcome struct {
	Event    EventType `json:"event"`
	Message  string    `json:"message"`
	Gold     int       `json:"gold,omitempty"` // Net money change
	Food     int       `json:"food,omitempty"`
	Crew     int       `json:"crew,omitempty"`
	Sight    int       `json:"sight,omitempty"`
	Repaired int       `json:"repaired,omitempty"`
	Relic    *Relic    `json:"relic,omitempty"`
	Weapon   *Weapon   `json:"weapon,omitempty"`
	Done     bool      `json:"done"` // Node finished; navigation resumes
}

// ResolveEvent applies a decision at the current non-combat node.
// Port nodes stay open until ActionLeave; every other node resolves at once.
func (s *Session) ResolveEvent(req EventRequest) (EventOutcome, error) {
	if s.Phase != PhaseEvent {
		return EventOutcome{}, ErrInvalidPhase
	}
	event := s.CurrentNode().Event

	var (
		out EventOutcome
		err error
	)
	switch event {
	case EventPort:
		out, err = s.resolvePort(req)
	case EventTreasure:
		out, err = s.resolveTreasure()
	case EventTemple:
		out = s.resolveTemple()
	case EventUnknown:
		// Unknown waters turn out to hide a treasure or a temple
		if s.rng.Intn(2) == 0 {
			out, err = s.resolveTreasure()
		} else {
			out = s.resolveTemple()
		}
	default:
		out = EventOutcome{Message: "Nothing happens.", Done: true}
	}
	if err != nil {
		return EventOutcome{}, err
	}

	out.Event = event
	if out.Done {
		s.portStock = nil
		s.Phase = PhaseNavigation
	}
	return out, nil
}

// PortStock lists the weapons for sale at the current port, rolling the
// stock on first access.
func (s *Session) PortStock() []Weapon {
	if s.Phase != PhaseEvent || s.CurrentNode().Event != EventPort {
		return nil
	}
	if s.portStock == nil {
		s.portStock = []Weapon{}
		for i := 0; i < s.Catalog.Port.StockSize; i++ {
			w, err := s.weapons.ForgeRandom()
			if err != nil {
				s.logger.Printf("SESSION %s: port stock: %v", s.ID, err)
				break
			}
			s.portStock = append(s.portStock, w)
		}
	}
	return s.portStock
}

func (s *Session) resolvePort(req EventRequest) (EventOutcome, error) {
	cfg := s.Catalog.Port
	p := &s.Player

	switch req.Action {
	case ActionRepair:
		amount := req.Amount
		if missing := p.Ship.HullMax - p.Hull; amount <= 0 || amount > missing {
			amount = missing
		}
		cost := amount * cfg.RepairCostPerHull
		if cost > p.Money {
			return EventOutcome{}, ErrInsufficientFunds
		}
		p.Money -= cost
		repaired := p.Repair(amount)
		return EventOutcome{Message: fmt.Sprintf("Repaired %d hull.", repaired), Gold: -cost, Repaired: repaired}, nil

	case ActionBuyFood:
		bundles := max(req.Amount, 1)
		cost := bundles * cfg.FoodPrice
		if cost > p.Money {
			return EventOutcome{}, ErrInsufficientFunds
		}
		food := bundles * cfg.FoodBundle
		p.Money -= cost
		p.Food += food
		return EventOutcome{Message: fmt.Sprintf("Bought %d food.", food), Gold: -cost, Food: food}, nil

	case ActionHireCrew:
		hire := max(req.Amount, 1)
		if room := p.Ship.CrewMax - p.Crew; hire > room {
			hire = room
		}
		cost := hire * cfg.CrewHireCost
		if cost > p.Money {
			return EventOutcome{}, ErrInsufficientFunds
		}
		p.Money -= cost
		p.Crew += hire
		return EventOutcome{Message: fmt.Sprintf("Hired %d crew.", hire), Gold: -cost, Crew: hire}, nil

	case ActionBuyWeapon:
		stock := s.PortStock()
		for i, w := range stock {
			if w.ID != req.WeaponID {
				continue
			}
			if w.Price > p.Money {
				return EventOutcome{}, ErrInsufficientFunds
			}
			if err := p.AddWeapon(w); err != nil {
				return EventOutcome{}, err
			}
			p.Money -= w.Price
			s.portStock = append(stock[:i], stock[i+1:]...)
			return EventOutcome{Message: "Bought " + w.Name + ".", Gold: -w.Price, Weapon: &w}, nil
		}
		return EventOutcome{}, fmt.Errorf("weapon %q not in stock", req.WeaponID)

	case ActionSellWeapon:
		for _, w := range p.Weapons {
			if w.ID != req.WeaponID {
				continue
			}
			p.RemoveWeapon(w.ID)
			price := w.Price / 2
			p.Money += price
			return EventOutcome{Message: "Sold " + w.Name + ".", Gold: price, Weapon: &w}, nil
		}
		return EventOutcome{}, fmt.Errorf("weapon %q not owned", req.WeaponID)

	case ActionLeave, "":
		return EventOutcome{Message: "Left port.", Done: true}, nil
	}
	return EventOutcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
}

// resolveTreasure grants a relic with RelicChance, otherwise gold. A full
// relic hold converts the find into gold.
func (s *Session) resolveTreasure() (EventOutcome, error) {
	cfg := s.Catalog.Treasure
	if len(s.Catalog.Relics.Tiers) > 0 && s.rng.Float64() < cfg.RelicChance && len(s.Player.Relics) < s.Player.Ship.Storage {
		relic, err := s.relics.Forge(s.relics.RollRarity())
		if err != nil {
			return EventOutcome{}, err
		}
		if err := ApplyRelic(&s.Player, relic); err != nil {
			return EventOutcome{}, err
		}
		return EventOutcome{Message: fmt.Sprintf("Found a %s relic.", relic.Rarity), Relic: &relic, Done: true}, nil
	}

	gold := rollRange(s.rng, cfg.Gold)
	if bonus := s.Player.RelicBonus(RelicGoldBonus); bonus > 0 {
		gold += gold * bonus / 100
	}
	s.Player.Money += gold
	return EventOutcome{Message: fmt.Sprintf("Found %d gold.", gold), Gold: gold, Done: true}, nil
}

// resolveTemple raises sight up to MaxSight and recovers crew.
func (s *Session) resolveTemple() EventOutcome {
	cfg := s.Catalog.Temple
	p := &s.Player

	sight := cfg.SightBonus
	if cfg.MaxSight > 0 && p.Sight+sight > cfg.MaxSight {
		sight = max(cfg.MaxSight-p.Sight, 0)
	}
	p.Sight += sight

	crew := min(cfg.CrewRecovery, max(p.Ship.CrewMax-p.Crew, 0))
	p.Crew += crew

	// Sight changed; refresh what the ship can see
	s.UpdateVisibility()
	return EventOutcome{Message: "The temple blesses the voyage.", Sight: sight, Crew: crew, Done: true}
}
