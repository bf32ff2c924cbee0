package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"

	"safedrive/internal/quote"
	"safedrive/internal/store"
	"safedrive/internal/types"
)

// GET /products
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		log.WithError(err).Error("products.list")
		s.writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []store.Product{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// GET /profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(r)
	cars, err := s.store.ListCars(r.Context(), u.ID)
	if err != nil {
		log.WithError(err).Error("profile.cars")
		s.writeError(w, http.StatusInternalServerError, "failed to load cars")
		return
	}
	quotes, err := s.store.ListUserQuotes(r.Context(), u.ID)
	if err != nil {
		log.WithError(err).Error("profile.quotes")
		s.writeError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}
	if cars == nil {
		cars = []store.Car{}
	}
	if quotes == nil {
		quotes = []store.QuoteDetail{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": u, "cars": cars, "quotes": quotes})
}

// validateCar returns the first missing field message, or "".
func validateCar(req types.CarRequest) string {
	switch {
	case strings.TrimSpace(req.Make) == "":
		return "Make is required."
	case strings.TrimSpace(req.Model) == "":
		return "Model is required."
	case req.Year == nil:
		return "Year is required."
	case strings.TrimSpace(req.LicensePlate) == "":
		return "License plate is required."
	case req.VehicleValue == nil:
		return "Vehicle value is required."
	case req.Mileage == nil:
		return "Mileage is required."
	}
	return ""
}

func applyCar(c *store.Car, req types.CarRequest) {
	c.Make = strings.TrimSpace(req.Make)
	c.Model = strings.TrimSpace(req.Model)
	c.Year = *req.Year
	c.LicensePlate = strings.TrimSpace(req.LicensePlate)
	c.VehicleValue = *req.VehicleValue
	c.Mileage = *req.Mileage
}

func carIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// POST /cars
func (s *Server) handleAddCar(w http.ResponseWriter, r *http.Request) {
	var req types.CarRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := validateCar(req); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	u := s.currentUser(r)
	car := &store.Car{UserID: u.ID}
	applyCar(car, req)
	if _, err := s.store.CreateCar(r.Context(), car); err != nil {
		log.WithError(err).Error("cars.create")
		s.writeError(w, http.StatusInternalServerError, "failed to add car")
		return
	}
	log.WithFields(log.Fields{"user_id": u.ID, "car_id": car.ID}).Info("cars.create")
	s.writeJSON(w, http.StatusCreated, map[string]any{"message": "Car added successfully!", "car": car})
}

// PUT /cars/{id}
func (s *Server) handleEditCar(w http.ResponseWriter, r *http.Request) {
	id, ok := carIDParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}
	u := s.currentUser(r)
	car, err := s.store.GetOwnedCar(r.Context(), id, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Car not found or you do not have permission to edit it.")
		return
	}
	if err != nil {
		log.WithError(err).Error("cars.get")
		s.writeError(w, http.StatusInternalServerError, "failed to load car")
		return
	}

	var req types.CarRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := validateCar(req); msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}
	applyCar(car, req)
	if err := s.store.UpdateCar(r.Context(), car); err != nil {
		log.WithError(err).Error("cars.update")
		s.writeError(w, http.StatusInternalServerError, "failed to update car")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Car updated successfully!", "car": car})
}

// DELETE /cars/{id}
func (s *Server) handleDeleteCar(w http.ResponseWriter, r *http.Request) {
	id, ok := carIDParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}
	u := s.currentUser(r)
	if err := s.store.DeleteCar(r.Context(), id, u.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Car not found or you do not have permission to delete it.")
			return
		}
		log.WithError(err).Error("cars.delete")
		s.writeError(w, http.StatusInternalServerError, "failed to delete car")
		return
	}
	log.WithFields(log.Fields{"user_id": u.ID, "car_id": id}).Info("cars.delete")
	s.writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Car deleted successfully!"})
}

// GET /cars/{id}/quotes prices every product for the car.
func (s *Server) handleCarQuotes(w http.ResponseWriter, r *http.Request) {
	id, ok := carIDParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid car id")
		return
	}
	u := s.currentUser(r)
	car, err := s.store.GetOwnedCar(r.Context(), id, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Car not found or you do not have permission to view it.")
		return
	}
	if err != nil {
		log.WithError(err).Error("cars.get")
		s.writeError(w, http.StatusInternalServerError, "failed to load car")
		return
	}
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		log.WithError(err).Error("products.list")
		s.writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"car": car, "quotes": quote.ForCar(products, *car, s.year)})
}

// POST /quotes saves the server-side price of a product for an owned car.
func (s *Server) handleSaveQuote(w http.ResponseWriter, r *http.Request) {
	var req types.SaveQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u := s.currentUser(r)
	car, err := s.store.GetOwnedCar(r.Context(), req.CarID, u.ID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Car not found or you do not have permission to save quotes for it.")
		return
	}
	if err != nil {
		log.WithError(err).Error("cars.get")
		s.writeError(w, http.StatusInternalServerError, "failed to load car")
		return
	}
	product, err := s.store.GetProduct(r.Context(), req.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusBadRequest, "Invalid insurance product.")
		return
	}
	if err != nil {
		log.WithError(err).Error("products.get")
		s.writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	b := quote.Calculate(*product, *car, s.year)
	q := &store.Quote{UserID: u.ID, CarID: car.ID, ProductID: product.ID, Price: b.Price, Status: store.QuotePending}
	if _, err := s.store.CreateQuote(r.Context(), q); err != nil {
		log.WithError(err).Error("quotes.create")
		s.writeError(w, http.StatusInternalServerError, "failed to save quote")
		return
	}
	log.WithFields(log.Fields{"user_id": u.ID, "quote_id": q.ID, "price": q.Price}).Info("quotes.create")
	s.writeJSON(w, http.StatusCreated, map[string]any{"message": "Quote saved successfully!", "quote": q})
}
