package domain

// Name — структурированное имя пользователя в профиле identity-провайдера.
type Name struct {
	GivenName       string `json:"givenName,omitempty"`
	FamilyName      string `json:"familyName,omitempty"`
	HonorificPrefix string `json:"honorificPrefix,omitempty"`
}

// MultiValue — одно значение из списка (email, телефон) с признаком primary.
type MultiValue struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// Address — почтовый адрес из профиля.
type Address struct {
	StreetAddress string `json:"streetAddress,omitempty"`
	Locality      string `json:"locality,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	Country       string `json:"country,omitempty"`
	Primary       bool   `json:"primary,omitempty"`
}

// User — профиль пользователя identity-провайдера.
type User struct {
	ID           string       `json:"id"`
	UserName     string       `json:"userName,omitempty"`
	Name         Name         `json:"name"`
	PhoneNumbers []MultiValue `json:"phoneNumbers,omitempty"`
	Emails       []MultiValue `json:"emails,omitempty"`
	Addresses    []Address    `json:"addresses,omitempty"`
}

// SelectPreferred возвращает первый элемент, удовлетворяющий preferred;
// если такого нет — первый элемент списка; для пустого списка ok == false.
func SelectPreferred[T any](list []T, preferred func(T) bool) (T, bool) {
	for _, item := range list {
		if preferred(item) {
			return item, true
		}
	}
	if len(list) > 0 {
		return list[0], true
	}
	var zero T
	return zero, false
}

// IsPrimaryValue — предикат primary-флага для MultiValue.
func IsPrimaryValue(v MultiValue) bool { return v.Primary }

// IsPrimaryAddress — предикат primary-флага для Address.
func IsPrimaryAddress(a Address) bool { return a.Primary }
