// Command seed loads a small demo data set: three accounts sharing the
// password "password123", two floors with one building and one classroom
// each, and two upcoming reservations.
package main

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/unispace/internal/config"
	"github.com/iliyamo/unispace/internal/database"
	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
	"github.com/iliyamo/unispace/internal/utils"
)

const demoPassword = "password123"

func main() {
	utils.InitLogger("unispace-seed")
	log := utils.Logger
	cfg := config.Load()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate schema")
	}

	users := repository.NewUserRepo(db)
	classrooms := repository.NewClassroomRepo(db)
	reservations := repository.NewReservationRepo(db)

	ids := map[string]uint64{}
	for _, u := range []struct {
		name string
		role model.Role
	}{
		{"admin", model.RoleAdmin},
		{"rep1", model.RoleRepresentative},
		{"student1", model.RoleStudent},
	} {
		id, err := users.Create(ctx, u.name, u.name+"@example.com", demoPassword, u.role, cfg.BcryptCost)
		if errors.Is(err, repository.ErrDuplicate) {
			log.WithField("username", u.name).Info("already seeded, nothing to do")
			return
		}
		if err != nil {
			log.WithError(err).Fatal("create user")
		}
		ids[u.name] = id
	}

	rooms := map[string]uint64{}
	for _, p := range []struct{ floor, building, room string }{
		{"1st Floor", "Building A", "Room 101"},
		{"2nd Floor", "Building B", "Room 201"},
	} {
		floorID, err := classrooms.CreateFloor(ctx, p.floor)
		if err != nil {
			log.WithError(err).Fatal("create floor")
		}
		buildingID, err := classrooms.CreateBuilding(ctx, p.building, floorID)
		if err != nil {
			log.WithError(err).Fatal("create building")
		}
		c := model.Classroom{Name: p.room, FloorID: floorID, BuildingID: buildingID}
		if err := classrooms.Create(ctx, &c); err != nil {
			log.WithError(err).Fatal("create classroom")
		}
		rooms[p.room] = c.ID
	}

	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	for _, r := range []model.Reservation{
		{UserID: ids["rep1"], ClassroomID: rooms["Room 101"], StartTime: day.Add(9 * time.Hour), EndTime: day.Add(10 * time.Hour)},
		{UserID: ids["student1"], ClassroomID: rooms["Room 201"], StartTime: day.Add(38 * time.Hour), EndTime: day.Add(40 * time.Hour)},
	} {
		r.CreatedAt, r.UpdatedAt = now, now
		if err := reservations.CreateChecked(ctx, &r); err != nil {
			log.WithError(err).Fatal("create reservation")
		}
	}
	log.Info("seed data inserted")
}
