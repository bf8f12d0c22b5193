package services

// RequestContext -> identitas pemanggil, dioper eksplisit ke setiap method
// service. Core tidak pernah membaca state request global.
type RequestContext struct {
	ActorID      uint
	RestaurantID uint
	Role         string

	// Terisi hanya untuk pemanggil customer (session token)
	SessionID uint
	TableID   uint
}

// StaffContext -> pemanggil terautentikasi sebagai staff
func StaffContext(actorID, restaurantID uint, role string) RequestContext {
	return RequestContext{ActorID: actorID, RestaurantID: restaurantID, Role: role}
}

// CustomerContext -> pemanggil membawa session token yang sudah tervalidasi
func CustomerContext(sessionID, tableID, restaurantID uint) RequestContext {
	return RequestContext{SessionID: sessionID, TableID: tableID, RestaurantID: restaurantID, Role: "customer"}
}
