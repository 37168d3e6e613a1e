package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/api/events"
	"github.com/amberops/ambulance-dispatch-api/api/scheduler"
	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
	"github.com/amberops/ambulance-dispatch-api/models"
)

var validate = validator.New()

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	dbHelper databases.DatabaseHelper
	hub      *events.Hub
	sweeper  *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	auth := api.Auth{DB: databases.NewUserDatabase(a.dbHelper), Secret: a.Config.JWTSecret}

	u := User{DB: databases.NewUserDatabase(a.dbHelper), Config: a.Config}
	d := Driver{DB: databases.NewDriverDatabase(a.dbHelper), UDB: databases.NewUserDatabase(a.dbHelper), ADB: databases.NewAmbulanceDatabase(a.dbHelper)}
	m := Medic{DB: databases.NewMedicDatabase(a.dbHelper), UDB: databases.NewUserDatabase(a.dbHelper), ADB: databases.NewAmbulanceDatabase(a.dbHelper)}
	amb := Ambulance{DB: databases.NewAmbulanceDatabase(a.dbHelper)}
	inc := Incident{
		DB:  databases.NewIncidentDatabase(a.dbHelper),
		UDB: databases.NewUserDatabase(a.dbHelper),
		ADB: databases.NewAmbulanceDatabase(a.dbHelper),
		Hub: a.hub,
	}

	secured := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(http.HandlerFunc(h))
	}
	roled := func(h http.HandlerFunc, roles ...string) http.Handler {
		return auth.Middleware(auth.RequireRole(roles...)(http.HandlerFunc(h)))
	}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/users/register", http.HandlerFunc(u.RegisterHandler)).Methods("POST")
	apiCreate.Handle("/users/login", http.HandlerFunc(u.LoginHandler)).Methods("POST")
	apiCreate.Handle("/users/forgot-password", http.HandlerFunc(u.ForgotPasswordHandler)).Methods("POST")
	apiCreate.Handle("/users/reset-password", http.HandlerFunc(u.ResetPasswordHandler)).Methods("POST")

	apiCreate.Handle("/users", roled(u.UsersFindAllHandler, models.RoleAdmin)).Methods("GET")
	apiCreate.Handle("/users/me", secured(u.UpdateMeHandler)).Methods("PUT")
	apiCreate.Handle("/users/{user_id}", roled(u.UpdateUserByIDHandler, models.RoleAdmin)).Methods("PUT")
	apiCreate.Handle("/users/{user_id}", roled(u.DeleteUserHandler, models.RoleAdmin)).Methods("DELETE")

	apiCreate.Handle("/drivers", roled(d.CreateDriverHandler, models.RoleAdmin)).Methods("POST")
	apiCreate.Handle("/drivers", secured(d.DriversFindAllHandler)).Methods("GET")
	apiCreate.Handle("/drivers/{driver_id}", roled(d.DriverByIDHandler, models.RoleAdmin)).Methods("GET")
	apiCreate.Handle("/drivers/{driver_id}", roled(d.UpdateDriverHandler, models.RoleAdmin)).Methods("PUT")
	apiCreate.Handle("/drivers/{driver_id}", roled(d.DeleteDriverHandler, models.RoleAdmin)).Methods("DELETE")

	apiCreate.Handle("/medics", roled(m.CreateMedicHandler, models.RoleAdmin)).Methods("POST")
	apiCreate.Handle("/medics", secured(m.MedicsFindAllHandler)).Methods("GET")
	apiCreate.Handle("/medics/{medic_id}", secured(m.MedicByIDHandler)).Methods("GET")
	apiCreate.Handle("/medics/{medic_id}", roled(m.UpdateMedicHandler, models.RoleAdmin)).Methods("PUT")
	apiCreate.Handle("/medics/{medic_id}", roled(m.DeleteMedicHandler, models.RoleAdmin)).Methods("DELETE")

	apiCreate.Handle("/ambulances", roled(amb.CreateAmbulanceHandler, models.RoleAdmin)).Methods("POST")
	apiCreate.Handle("/ambulances", secured(amb.AmbulancesFindAllHandler)).Methods("GET")
	apiCreate.Handle("/ambulances/{ambulance_id}", secured(amb.AmbulanceByIDHandler)).Methods("GET")
	apiCreate.Handle("/ambulances/{ambulance_id}", roled(amb.UpdateAmbulanceHandler, models.RoleAdmin)).Methods("PUT")
	apiCreate.Handle("/ambulances/{ambulance_id}", roled(amb.DeleteAmbulanceHandler, models.RoleAdmin)).Methods("DELETE")

	apiCreate.Handle("/incidents", secured(inc.ReportIncidentHandler)).Methods("POST")
	apiCreate.Handle("/incidents", roled(inc.IncidentsFindAllHandler, models.RoleAdmin, models.RoleDispatcher)).Methods("GET")
	apiCreate.Handle("/incidents/mine", secured(inc.MyIncidentsHandler)).Methods("GET")
	apiCreate.Handle("/incidents/{incident_id}", secured(inc.IncidentByIDHandler)).Methods("GET")
	apiCreate.Handle("/incidents/{incident_id}/approve", roled(inc.ApproveIncidentHandler, models.RoleDispatcher)).Methods("POST")
	apiCreate.Handle("/incidents/{incident_id}/revoke", roled(inc.RevokeIncidentHandler, models.RoleDispatcher)).Methods("POST")
	apiCreate.Handle("/incidents/{incident_id}/status", roled(inc.UpdateIncidentStatusHandler, models.RoleDispatcher)).Methods("PATCH")
	apiCreate.Handle("/incidents/{incident_id}", roled(inc.DeleteIncidentHandler, models.RoleAdmin)).Methods("DELETE")

	apiCreate.Handle("/events/ws", secured(a.hub.ServeWS)).Methods("GET")

	apiCreate.Handle("/metrics", roled(a.MetricsHandler, models.RoleAdmin)).Methods("GET")

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("ambulance-dispatch-api has connected to the database")

	a.hub = events.NewHub()
	go a.hub.Run()

	a.sweeper = scheduler.New(
		databases.NewUserDatabase(a.dbHelper),
		databases.NewDriverDatabase(a.dbHelper),
		databases.NewMedicDatabase(a.dbHelper),
	)
	a.sweeper.Start()

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// MetricsHandler returns the in-memory per-route request metrics
func (a *App) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(api.GetMetrics().Snapshot())
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
