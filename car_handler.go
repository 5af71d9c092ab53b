package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arunvm123/carrental/model"
	"github.com/arunvm123/carrental/repository"
)

type CarHandler struct {
	cars            repository.CarRepository
	defaultCurrency string
}

// errCarInUse vetoes deleting a car that an open booking still holds.
var errCarInUse = errors.New("car has open bookings")

func NewCarHandler(cars repository.CarRepository, defaultCurrency string) *CarHandler {
	return &CarHandler{cars: cars, defaultCurrency: defaultCurrency}
}

// ListCars returns the catalogue, cheapest first
func (h *CarHandler) ListCars(c *gin.Context) {
	limit, offset, err := pageParams(c)
	if err != nil {
		validationError(c, err)
		return
	}

	filter := model.CarFilter{
		Category:      c.Query("category"),
		AvailableOnly: c.Query("available") == "true",
		Limit:         limit,
		Offset:        offset,
	}
	if s := c.Query("max_price"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			validationError(c, errors.New("max_price must be a positive number"))
			return
		}
		filter.MaxPrice = v
	}

	cars, total, err := h.cars.ListCars(c.Request.Context(), filter)
	if err != nil {
		storeFailure(c, err, "Failed to retrieve cars")
		return
	}

	resp := model.CarListResponse{
		Cars:       make([]model.CarResponse, 0, len(cars)),
		Pagination: model.NewPagination(total, limit, offset),
	}
	for i := range cars {
		resp.Cars = append(resp.Cars, cars[i].ToCarResponse())
	}
	c.JSON(http.StatusOK, resp)
}

// GetCar returns one car
func (h *CarHandler) GetCar(c *gin.Context) {
	car, err := h.cars.GetCarByID(c.Request.Context(), c.Param("carId"))
	if err != nil {
		storeFailure(c, err, "Failed to retrieve car")
		return
	}
	c.JSON(http.StatusOK, car.ToCarResponse())
}

// CreateCar lists a new car
func (h *CarHandler) CreateCar(c *gin.Context) {
	var req model.CreateCarAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	car, err := model.NewCar(req.ToCreateCarRequest(h.defaultCurrency), time.Now())
	if err != nil {
		validationError(c, err)
		return
	}

	if err := h.cars.CreateCar(c.Request.Context(), car); err != nil {
		storeFailure(c, err, "Failed to create car")
		return
	}
	c.JSON(http.StatusCreated, car.ToCarResponse())
}

// UpdateCar edits a car listing
func (h *CarHandler) UpdateCar(c *gin.Context) {
	var req model.UpdateCarAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	car, err := h.cars.UpdateCar(c.Request.Context(), req.ToUpdateCarRequest(c.Param("carId")))
	if err != nil {
		storeFailure(c, err, "Failed to update car")
		return
	}
	c.JSON(http.StatusOK, car.ToCarResponse())
}

// DeleteCar removes a car that has no booking holding it
func (h *CarHandler) DeleteCar(c *gin.Context) {
	now := time.Now()
	err := h.cars.DeleteCar(c.Request.Context(), c.Param("carId"), func(snap *repository.CarSnapshot) error {
		for i := range snap.Bookings {
			if snap.Bookings[i].Status != model.StatusCompleted && snap.Bookings[i].BlocksCalendar(now) {
				return errCarInUse
			}
		}
		return nil
	})
	if errors.Is(err, errCarInUse) {
		c.JSON(http.StatusConflict, model.ErrorResponse{
			Error:   "car_has_bookings",
			Message: "car has open bookings",
		})
		return
	}
	if err != nil {
		storeFailure(c, err, "Failed to delete car")
		return
	}
	c.Status(http.StatusNoContent)
}

func storeFailure(c *gin.Context, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Error:   "not_found",
			Message: "Car not found",
		})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
		Error:   "store_error",
		Message: msg,
	})
}
