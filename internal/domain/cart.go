package domain

// CartLine — одна позиция корзины: выбранный продукт с вариантом (размер, цвет)
// и количеством. Поля Name/Price/Image/Stock — денормализованный снимок
// продукта на момент добавления; авторитетный сток всегда перечитывается
// из каталога при валидации.
type CartLine struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Stock     int     `json:"stock"`
}

// SameKey сравнивает позиции по ключу уникальности (product, size, color).
func (l CartLine) SameKey(productID, size, color string) bool {
	return l.ProductID == productID && l.Size == size && l.Color == color
}

// Cart — упорядоченный список позиций, принадлежащий ровно одному пользователю.
// Корзина хранится как поле агрегата User и передаётся в сервис явно,
// без обращения к ambient-состоянию сессии.
type Cart []CartLine

// Find возвращает индекс позиции с заданным ключом или -1.
func (c Cart) Find(productID, size, color string) int {
	for i, line := range c {
		if line.SameKey(productID, size, color) {
			return i
		}
	}
	return -1
}

// Merge добавляет позицию в корзину: при совпадении ключа увеличивает
// количество существующей строки, иначе добавляет новую в конец.
// Две строки с одним ключом в корзине невозможны.
func (c Cart) Merge(line CartLine) Cart {
	if i := c.Find(line.ProductID, line.Size, line.Color); i >= 0 {
		out := c.Clone()
		out[i].Quantity += line.Quantity
		return out
	}
	out := c.Clone()
	return append(out, line)
}

// Remove удаляет позицию с заданным ключом. Удаление отсутствующей
// позиции — no-op: операция идемпотентна.
func (c Cart) Remove(productID, size, color string) Cart {
	out := make(Cart, 0, len(c))
	for _, line := range c {
		if line.SameKey(productID, size, color) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Clone возвращает независимую копию корзины.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// IsEmpty сообщает, пуста ли корзина.
func (c Cart) IsEmpty() bool {
	return len(c) == 0
}
