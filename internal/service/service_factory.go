package service

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	deps         Dependencies
	voterService *VoterService
}

func NewServiceFactory(deps Dependencies) *ServiceFactory {
	return &ServiceFactory{deps: deps}
}

// VoterService returns the voter service instance (singleton)
func (f *ServiceFactory) VoterService() *VoterService {
	if f.voterService == nil {
		f.voterService = NewVoterService(f.deps)
	}
	return f.voterService
}
