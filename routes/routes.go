package routes

import (
	"eventpilot/config"
	"eventpilot/constants"
	adminController "eventpilot/controllers/admin"
	aiController "eventpilot/controllers/ai"
	attendanceController "eventpilot/controllers/attendance"
	authController "eventpilot/controllers/auth"
	cateringController "eventpilot/controllers/catering"
	emailController "eventpilot/controllers/email"
	galleryController "eventpilot/controllers/gallery"
	guestController "eventpilot/controllers/guest"
	invitationController "eventpilot/controllers/invitation"
	registrationController "eventpilot/controllers/registration"
	"eventpilot/controllers/server"
	sessionController "eventpilot/controllers/session"
	sponsorController "eventpilot/controllers/sponsor"
	suggestionController "eventpilot/controllers/suggestion"
	uploadController "eventpilot/controllers/upload"
	userController "eventpilot/controllers/user"
	valetController "eventpilot/controllers/valet"
	"eventpilot/logger"
	"eventpilot/middleware"
	aiService "eventpilot/services/ai"
	galleryService "eventpilot/services/gallery"
	"eventpilot/services/mailer"
	regService "eventpilot/services/registration"
	"eventpilot/services/storage"
	valetService "eventpilot/services/valet"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps are the shared services handed to the controllers. GalleryStore and
// Processor are nil when the gallery bucket is not configured.
type Deps struct {
	DB           *gorm.DB
	Config       *config.Config
	Logger       *logger.AsyncLogger
	Mailer       *mailer.Mailer
	Registration *regService.Service
	Valet        *valetService.Service
	AI           *aiService.Service
	Store        storage.Store
	GalleryStore storage.Store
	Processor    *galleryService.Processor
}

func SetupRoutes(app *fiber.App, d Deps) {
	authn := middleware.NewAuthenticator(d.DB, d.Config.JWTSecret)
	valetAuth := middleware.NewValetAuth(d.DB, d.Config.ValetJWTSecret)

	health := server.NewHealthController(d.DB, d.Config)
	authCtl := authController.NewAuthController(d.DB, d.Logger, d.Mailer, d.Config)
	userCtl := userController.NewUserController(d.DB, d.Logger)
	sessionCtl := sessionController.NewSessionController(d.DB, d.Logger, d.Config)
	registrationCtl := registrationController.NewRegistrationController(d.DB, d.Logger, d.Registration)
	attendanceCtl := attendanceController.NewAttendanceController(d.DB, d.Logger)
	valetCtl := valetController.NewValetController(d.DB, d.Logger, d.Valet, d.Config)
	cateringCtl := cateringController.NewCateringController(d.DB, d.Logger)
	sponsorCtl := sponsorController.NewSponsorController(d.DB, d.Logger)
	guestCtl := guestController.NewGuestController(d.DB, d.Logger)
	suggestionCtl := suggestionController.NewSuggestionController(d.DB, d.Logger)
	emailCtl := emailController.NewEmailController(d.DB, d.Logger)
	invitationCtl := invitationController.NewInvitationController(d.DB, d.Logger, d.Mailer)
	galleryCtl := galleryController.NewGalleryController(d.DB, d.Logger, d.GalleryStore, d.Processor, d.Mailer, d.Config)
	uploadCtl := uploadController.NewUploadController(d.Store, d.Logger)
	adminCtl := adminController.NewAdminController(d.DB, d.Logger, d.Config)
	aiCtl := aiController.NewAIController(d.AI, d.Logger)

	admin := authn.RequireAdmin
	superAdmin := authn.RequireSuperAdmin()
	signedIn := authn.RequireAuth()

	app.Get("/health", health.Health)
	api := app.Group("/api")

	/*===== | Auth =====*/
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authCtl.Register)
	authGroup.Post("/login", authCtl.Login)
	authGroup.Post("/logout", authCtl.Logout)
	authGroup.Post("/forgot-password", authCtl.ForgotPassword)
	authGroup.Get("/validate-reset-token", authCtl.ValidateResetToken)
	authGroup.Post("/reset-password", authCtl.ResetPassword)
	authGroup.Post("/change-password", signedIn, authCtl.ChangePassword)

	/*===== | User =====*/
	userGroup := api.Group("/user")
	userGroup.Get("/check-username", userCtl.CheckUsername)
	userGroup.Get("/me", signedIn, userCtl.GetMyProfile)
	userGroup.Put("/me", signedIn, userCtl.UpdateProfile)
	userGroup.Get("/dashboard", signedIn, userCtl.GetDashboard)
	userGroup.Get("/profile/:username", userCtl.GetProfile)

	/*===== | Session =====*/
	sessionGroup := api.Group("/session")
	sessionGroup.Get("/", sessionCtl.List)
	sessionGroup.Get("/upcoming", sessionCtl.GetUpcoming)
	sessionGroup.Get("/slug/:slug", sessionCtl.GetBySlug)
	sessionGroup.Get("/:id", sessionCtl.GetByID)
	sessionGroup.Get("/:id/countdown", sessionCtl.GetCountdown)
	sessionGroup.Get("/:id/embed", sessionCtl.GetEmbedCode)
	sessionGroup.Get("/:id/check-registration", signedIn, sessionCtl.CheckRegistration)
	sessionGroup.Post("/", admin(constants.PermSessions), sessionCtl.Create)
	sessionGroup.Put("/:id", admin(constants.PermSessions), sessionCtl.Update)

	/*===== | Registration =====*/
	registrationGroup := api.Group("/registration")
	registrationGroup.Post("/guest", registrationCtl.GuestRegister)
	registrationGroup.Get("/:id/confirmation", registrationCtl.GetConfirmation)
	registrationGroup.Post("/", signedIn, registrationCtl.RegisterForSession)
	registrationGroup.Get("/mine", signedIn, registrationCtl.GetMyRegistrations)
	registrationGroup.Post("/companions", signedIn, registrationCtl.AddCompanion)
	registrationGroup.Get("/:id/companions", signedIn, registrationCtl.ListCompanions)
	registrationGroup.Delete("/companions/:id", signedIn, registrationCtl.RemoveCompanion)
	registrationGroup.Get("/session/:id", admin(constants.PermSessions), registrationCtl.GetSessionRegistrations)
	registrationGroup.Get("/session/:id/companions", admin(constants.PermSessions), registrationCtl.GetSessionCompanions)
	registrationGroup.Post("/session/:id/approve-all", admin(constants.PermSessions), registrationCtl.ApproveAll)
	registrationGroup.Post("/manual", admin(constants.PermSessions), registrationCtl.ManualRegister)
	registrationGroup.Post("/:id/approve", admin(constants.PermSessions), registrationCtl.Approve)

	/*===== | Attendance =====*/
	attendanceGroup := api.Group("/attendance")
	attendanceGroup.Get("/my-qr/:id", signedIn, attendanceCtl.GetMyQR)
	attendanceGroup.Post("/mark", admin(constants.PermCheckin), attendanceCtl.MarkAttendance)
	attendanceGroup.Post("/qr", admin(constants.PermCheckin), attendanceCtl.MarkAttendanceQR)
	attendanceGroup.Get("/session/:id", admin(constants.PermCheckin), attendanceCtl.GetSessionAttendance)

	/*===== | Valet =====*/
	valetGroup := api.Group("/valet")
	valetGroup.Post("/login", valetCtl.Login)
	valetGroup.Post("/public/retrieve", valetCtl.RequestRetrieval)
	valetGroup.Get("/track/:token", valetCtl.GetStatusByToken)
	valetGroup.Post("/track/:token/retrieve", valetCtl.RequestRetrievalByToken)
	valetGroup.Get("/my-status/:id", signedIn, valetCtl.GetMyValetStatus)

	staff := valetGroup.Group("/staff", valetAuth.RequireValet())
	staff.Get("/me", valetCtl.GetMe)
	staff.Get("/sessions", valetCtl.GetMyAssignedSessions)
	staff.Get("/sessions/:id", valetCtl.GetSessionForValet)
	staff.Get("/sessions/:id/queue", valetCtl.GetRetrievalQueue)
	staff.Get("/sessions/:id/stats", valetCtl.GetValetStats)
	staff.Get("/guests", valetCtl.SearchGuests)
	staff.Post("/guests/qr", valetCtl.GetGuestByQR)
	staff.Get("/records/:registrationId", valetCtl.GetValetRecord)
	staff.Post("/park", valetCtl.ParkVehicle)
	staff.Post("/records/:id/fetching", valetCtl.MarkVehicleFetching)
	staff.Post("/records/:id/ready", valetCtl.MarkVehicleReady)
	staff.Post("/records/:id/retrieved", valetCtl.MarkVehicleRetrieved)
	staff.Post("/retrieve/:registrationId", valetCtl.ValetRequestRetrieval)

	valetAdmin := valetGroup.Group("/admin", admin(constants.PermSessions))
	valetAdmin.Get("/employees", valetCtl.ListEmployees)
	valetAdmin.Post("/employees", valetCtl.CreateEmployee)
	valetAdmin.Put("/employees/:id", valetCtl.UpdateEmployee)
	valetAdmin.Delete("/employees/:id", valetCtl.DeleteEmployee)
	valetAdmin.Post("/assignments", valetCtl.AssignEmployeeToSession)
	valetAdmin.Delete("/assignments", valetCtl.UnassignEmployeeFromSession)
	valetAdmin.Get("/sessions/:id/employees", valetCtl.GetSessionEmployees)
	valetAdmin.Get("/sessions/:id/config", valetCtl.GetSessionConfig)
	valetAdmin.Put("/sessions/:id/config", valetCtl.UpdateSessionConfig)
	valetAdmin.Get("/sessions/:id/stats", valetCtl.GetSessionValetStats)
	valetAdmin.Get("/sessions/:id/guests", valetCtl.GetSessionValetGuests)
	valetAdmin.Get("/sessions/:id/records", valetCtl.GetAllRecords)
	valetAdmin.Post("/sessions/:id/broadcast", valetCtl.SendBroadcast)
	valetAdmin.Post("/registrations/:registrationId/vip", valetCtl.MarkGuestVip)
	valetAdmin.Post("/registrations/:registrationId/retrieve", valetCtl.AdminRequestRetrieval)
	valetAdmin.Put("/records/:id/status", valetCtl.AdminOverrideStatus)
	valetAdmin.Put("/records/:id/vip", valetCtl.AdminOverrideVip)
	valetAdmin.Put("/records/:id/vehicle", valetCtl.AdminUpdateVehicleDetails)

	/*===== | Catering =====*/
	cateringGroup := api.Group("/catering")
	cateringGroup.Get("/session/:id", cateringCtl.GetPublicSessionCatering)
	cateringGroup.Get("/session/:id/admin", admin(constants.PermHosts), cateringCtl.GetSessionCatering)
	cateringGroup.Post("/session/:id", admin(constants.PermHosts), cateringCtl.AddCatering)
	cateringGroup.Put("/:id", admin(constants.PermHosts), cateringCtl.UpdateCatering)
	cateringGroup.Delete("/:id", admin(constants.PermHosts), cateringCtl.DeleteCatering)
	cateringGroup.Get("/hosts", admin(constants.PermHosts), cateringCtl.GetPotentialHosts)

	/*===== | Sponsor =====*/
	sponsorGroup := api.Group("/sponsor")
	sponsorGroup.Get("/session/:id", sponsorCtl.GetSessionSponsorships)
	sponsorAdmin := sponsorGroup.Group("", admin(constants.PermHosts))
	sponsorAdmin.Get("/", sponsorCtl.GetAll)
	sponsorAdmin.Get("/export", sponsorCtl.Export)
	sponsorAdmin.Get("/users/search", sponsorCtl.SearchUsersForLinking)
	sponsorAdmin.Get("/user/:userId", sponsorCtl.GetByUserID)
	sponsorAdmin.Get("/session/:id/admin", sponsorCtl.GetSessionSponsorshipsAdmin)
	sponsorAdmin.Get("/session/:id/available", sponsorCtl.GetAvailableForSession)
	sponsorAdmin.Post("/sponsorships", sponsorCtl.LinkToSession)
	sponsorAdmin.Put("/sponsorships/:id", sponsorCtl.UpdateSponsorship)
	sponsorAdmin.Delete("/sponsorships/:id", sponsorCtl.UnlinkFromSession)
	sponsorAdmin.Post("/", sponsorCtl.Create)
	sponsorAdmin.Get("/:id", sponsorCtl.GetByID)
	sponsorAdmin.Get("/:id/available-sessions", sponsorCtl.GetAvailableSessions)
	sponsorAdmin.Put("/:id", sponsorCtl.Update)
	sponsorAdmin.Delete("/:id", sponsorCtl.Delete)
	sponsorAdmin.Delete("/:id/hard", sponsorCtl.HardDelete)
	sponsorAdmin.Post("/:id/user", sponsorCtl.LinkToUser)
	sponsorAdmin.Delete("/:id/user", sponsorCtl.UnlinkFromUser)

	/*===== | Guest =====*/
	guestGroup := api.Group("/guest")
	guestGroup.Get("/session/:id", guestCtl.GetSessionGuests)
	guestGroup.Get("/public/:id", guestCtl.GetPublic)
	guestAdmin := guestGroup.Group("", admin(constants.PermSessions))
	guestAdmin.Get("/", guestCtl.GetAll)
	guestAdmin.Get("/insights", guestCtl.GetInsights)
	guestAdmin.Get("/selector", guestCtl.SearchForSelector)
	guestAdmin.Post("/", guestCtl.Create)
	guestAdmin.Post("/quick", guestCtl.QuickCreate)
	guestAdmin.Post("/link", guestCtl.LinkToSession)
	guestAdmin.Post("/unlink", guestCtl.UnlinkFromSession)
	guestAdmin.Put("/session-guests/:id/order", guestCtl.UpdateDisplayOrder)
	guestAdmin.Put("/session/:id", guestCtl.SetSessionGuests)
	guestAdmin.Get("/:id", guestCtl.GetByID)
	guestAdmin.Put("/:id", guestCtl.Update)
	guestAdmin.Put("/:id/social", guestCtl.UpdateSocialMedia)
	guestAdmin.Delete("/:id", guestCtl.Delete)

	/*===== | Suggestion =====*/
	suggestionGroup := api.Group("/suggestion")
	suggestionGroup.Post("/", signedIn, suggestionCtl.Create)
	suggestionGroup.Get("/", admin(constants.PermSuggestions), suggestionCtl.GetAll)
	suggestionGroup.Get("/stats", admin(constants.PermSuggestions), suggestionCtl.GetStats)
	suggestionGroup.Put("/:id/status", admin(constants.PermSuggestions), suggestionCtl.UpdateStatus)
	suggestionGroup.Delete("/:id", admin(constants.PermSuggestions), suggestionCtl.Delete)

	/*===== | Email =====*/
	emailGroup := api.Group("/email", admin(constants.PermEmailCampaigns))
	emailGroup.Get("/stats", emailCtl.GetStats)
	emailGroup.Get("/logs", emailCtl.GetLogs)
	emailGroup.Get("/failed", emailCtl.GetFailedEmails)
	emailGroup.Post("/retry", emailCtl.MarkForRetry)
	emailGroup.Post("/cleanup", emailCtl.Cleanup)

	/*===== | Invitation =====*/
	invitationGroup := api.Group("/invitation")
	invitationGroup.Post("/validate", invitationCtl.ValidateToken)
	invitationAdmin := invitationGroup.Group("", admin(constants.PermSessions))
	invitationAdmin.Get("/users", invitationCtl.GetUsersForInvite)
	invitationAdmin.Post("/send", invitationCtl.SendInvites)
	invitationAdmin.Post("/whatsapp", invitationCtl.GenerateWhatsAppLinks)
	invitationAdmin.Get("/session/:id", invitationCtl.GetSessionInvites)
	invitationAdmin.Post("/:id/resend", invitationCtl.ResendInvite)
	invitationAdmin.Delete("/:id", invitationCtl.DeleteInvite)

	/*===== | Gallery =====*/
	galleryGroup := api.Group("/gallery")
	galleryGroup.Get("/configured", admin(), galleryCtl.IsConfigured)
	galleryGroup.Get("/photos/:token", galleryCtl.RequireConfigured, galleryCtl.GetPhotosByToken)
	galleryAdmin := galleryGroup.Group("", admin(constants.PermSessions), galleryCtl.RequireConfigured)
	galleryAdmin.Post("/", galleryCtl.Create)
	galleryAdmin.Get("/session/:id", galleryCtl.ListBySession)
	galleryAdmin.Get("/:id", galleryCtl.GetByID)
	galleryAdmin.Delete("/:id", galleryCtl.Delete)
	galleryAdmin.Get("/:id/images", galleryCtl.GetImages)
	galleryAdmin.Post("/:id/upload-url", galleryCtl.GenerateUploadURL)
	galleryAdmin.Post("/:id/confirm-upload", galleryCtl.ConfirmUpload)
	galleryAdmin.Post("/:id/process", galleryCtl.StartProcessing)
	galleryAdmin.Post("/:id/reprocess", galleryCtl.Reprocess)
	galleryAdmin.Get("/:id/status", galleryCtl.GetProcessingStatus)
	galleryAdmin.Get("/:id/clusters", galleryCtl.GetClusters)
	galleryAdmin.Get("/:id/attendees", galleryCtl.GetSessionAttendees)
	galleryAdmin.Post("/clusters/:id/assign", galleryCtl.AssignClusterToUser)
	galleryAdmin.Post("/clusters/:id/assign-manual", galleryCtl.AssignClusterManually)
	galleryAdmin.Post("/clusters/:id/share", galleryCtl.ShareCluster)
	galleryAdmin.Get("/clusters/:id/share", galleryCtl.GetShareStatus)

	/*===== | Upload =====*/
	api.Post("/upload/presign", signedIn, uploadCtl.Presign)

	/*===== | Admin =====*/
	api.Post("/admin/bootstrap", adminCtl.BootstrapSuperAdmin)
	api.Get("/settings", adminCtl.GetSettings)

	adminGroup := api.Group("/admin")
	adminGroup.Get("/dashboard", admin(constants.PermDashboard), adminCtl.GetDashboard)
	adminGroup.Get("/recommendations", admin(constants.PermDashboard), adminCtl.GetRecommendations)
	adminGroup.Get("/analytics", admin(constants.PermAnalytics), adminCtl.GetAnalytics)
	adminGroup.Get("/export/users", admin(constants.PermUsers), adminCtl.ExportUsers)
	adminGroup.Get("/export/hosts", admin(constants.PermHosts), adminCtl.ExportHosts)
	adminGroup.Get("/export/sessions/:id/registrations", admin(constants.PermSessions), adminCtl.ExportSessionRegistrations)
	adminGroup.Get("/sessions/:id/qr", admin(constants.PermCheckin), adminCtl.GetSessionQR)
	adminGroup.Get("/hosts", admin(constants.PermHosts), adminCtl.GetHosts)
	adminGroup.Post("/hosts", admin(constants.PermHosts), adminCtl.CreateHost)
	adminGroup.Put("/settings", admin(constants.PermSettings), adminCtl.UpdateSettings)

	adminUsers := adminGroup.Group("/users", admin(constants.PermUsers))
	adminUsers.Get("/", adminCtl.GetUsers)
	adminUsers.Get("/:id", adminCtl.GetUserByID)
	adminUsers.Post("/:id/toggle-active", adminCtl.ToggleUserActive)
	adminUsers.Get("/:userId/notes", adminCtl.GetUserNotes)

	adminGroup.Post("/notes", admin(constants.PermUsers), adminCtl.CreateNote)
	adminGroup.Delete("/notes/:id", admin(constants.PermUsers), adminCtl.DeleteNote)

	labels := adminGroup.Group("/labels", admin(constants.PermUsers))
	labels.Get("/", adminCtl.GetLabels)
	labels.Post("/", adminCtl.CreateLabel)
	labels.Post("/assign", adminCtl.AssignLabelsToUser)
	labels.Post("/create-and-assign", adminCtl.CreateAndAssignLabel)
	labels.Put("/:id", adminCtl.UpdateLabel)
	labels.Delete("/:id", adminCtl.DeleteLabel)

	admins := adminGroup.Group("/admins", superAdmin)
	admins.Get("/", adminCtl.GetAdminUsers)
	admins.Post("/", adminCtl.CreateAdmin)
	admins.Put("/:id/role", adminCtl.UpdateUserRole)
	admins.Put("/:id/permissions", adminCtl.UpdateUserPermissions)

	/*===== | AI =====*/
	aiGroup := api.Group("/ai")
	aiGroup.Post("/description", signedIn, aiCtl.GenerateDescription)
	aiGroup.Post("/analyze", admin(constants.PermAnalytics), aiCtl.Analyze)
}
