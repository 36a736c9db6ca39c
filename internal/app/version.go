package app

const ServiceName = "memorial-service"

// Version is overridden at build time with -ldflags "-X memorial-service/internal/app.Version=...".
var Version = "dev"
