// Package docs содержит Swagger-описание API, которое отдает http-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/user": {
            "get": {
                "description": "Только для роли admin. Поддерживает фильтрацию, сортировку, выбор полей и пагинацию.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Список пользователей",
                "parameters": [
                    {"type": "string", "description": "Фильтр по роли", "name": "role", "in": "query"},
                    {"type": "string", "description": "Поля сортировки, например -createdAt,name", "name": "sort", "in": "query"},
                    {"type": "string", "description": "Поля ответа, например name,email", "name": "fields", "in": "query"},
                    {"type": "integer", "default": 1, "description": "Номер страницы", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "Размер страницы", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/list.Response"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "403": {"description": "Недостаточно прав", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка сервера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/auth/forgotPassword": {
            "post": {
                "description": "Отправляет на почту ссылку со сроком действия 10 минут.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Запрос сброса пароля",
                "parameters": [
                    {"description": "Email пользователя", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/forgotpassword.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/forgotpassword.Response"}},
                    "400": {"description": "Некорректный запрос", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Пользователь не найден", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Ошибка отправки письма", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/auth/login": {
            "post": {
                "description": "Проверяет email и пароль, выставляет cookie token с JWT.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Вход пользователя",
                "parameters": [
                    {"description": "Учетные данные пользователя", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/login.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/login.Response"}},
                    "400": {"description": "Некорректный запрос", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Неверный пароль", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Пользователь не найден", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка сервера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/auth/logout": {
            "post": {
                "description": "Удаляет cookie token.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Выход пользователя",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}}
                }
            }
        },
        "/user/auth/resetPassword/{token}": {
            "patch": {
                "description": "Устанавливает новый пароль, если токен существует и не просрочен.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Сброс пароля",
                "parameters": [
                    {"type": "string", "description": "Токен из письма", "name": "token", "in": "path", "required": true},
                    {"description": "Новый пароль", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/resetpassword.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}},
                    "400": {"description": "Токен недействителен или истек", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка сервера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/auth/signup": {
            "post": {
                "description": "Создает учетную запись. Роль по умолчанию user.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Регистрация пользователя",
                "parameters": [
                    {"description": "Данные пользователя", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/signup.Request"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.MessageResponse"}},
                    "400": {"description": "Некорректные данные или пользователь уже существует", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка сервера", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/auth/updatePassword": {
            "patch": {
                "description": "Проверяет текущий пароль и устанавливает новый. Ранее выданные токены перестают действовать.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Смена пароля",
                "parameters": [
                    {"description": "Пароли", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/updatepassword.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.MessageResponse"}},
                    "400": {"description": "Некорректный запрос", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Нет сессии или неверный пароль", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Пользователь не найден", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/getMe": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Текущий пользователь",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/read.UserResponse"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/user/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Получить пользователя",
                "parameters": [
                    {"type": "string", "description": "ID пользователя", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/read.UserResponse"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Пользователь не найден", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Помечает пользователя удаленным. Запись остается в базе, но больше не читается.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Удалить пользователя",
                "parameters": [
                    {"type": "string", "description": "ID пользователя", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/read.UserResponse"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Пользователь не найден", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "patch": {
                "description": "Меняет имя и/или email. Для пароля есть отдельные маршруты.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Изменить пользователя",
                "parameters": [
                    {"type": "string", "description": "ID пользователя", "name": "id", "in": "path", "required": true},
                    {"description": "Изменяемые поля", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/update.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/read.UserResponse"}},
                    "400": {"description": "Некорректные данные или email занят", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Нет сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Пользователь не найден", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "forgotpassword.Request": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}}
        },
        "forgotpassword.Response": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Token sent to email"},
                "token_for_test": {"type": "string"}
            }
        },
        "list.Response": {
            "type": "object",
            "properties": {
                "users": {"type": "array", "items": {"type": "object", "additionalProperties": true}}
            }
        },
        "login.Request": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "login.Response": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "Login successful"},
                "token": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "passwordChangedAt": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "read.UserResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/models.User"}}
        },
        "resetpassword.Request": {
            "type": "object",
            "required": ["password"],
            "properties": {"password": {"type": "string"}}
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "User not found"},
                "status": {"type": "string", "example": "fail"},
                "statusCode": {"type": "integer", "example": 404}
            }
        },
        "response.MessageResponse": {
            "type": "object",
            "properties": {"message": {"type": "string", "example": "Signup successful"}}
        },
        "signup.Request": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "update.Request": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "name": {"type": "string"}}
        },
        "updatepassword.Request": {
            "type": "object",
            "required": ["currentPassword", "newPassword"],
            "properties": {"currentPassword": {"type": "string"}, "newPassword": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "User Service API",
	Description:      "Регистрация, вход по cookie с JWT, сброс пароля и администрирование пользователей.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
